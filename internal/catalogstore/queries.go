package catalogstore

const (
	listActiveQuery = `
		SELECT id, name, category, features, pricing, description,
		       website_url, documentation_url, tags,
		       documentation_quality, community_rating, is_active,
		       created_at, updated_at
		FROM api_catalog
		WHERE is_active = TRUE
		ORDER BY name`

	insertEntryQuery = `
		INSERT INTO api_catalog (
			id, name, category, features, pricing, description,
			website_url, documentation_url, tags,
			documentation_quality, community_rating, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	truncateQuery = `TRUNCATE TABLE api_catalog`

	insertConversationQuery = `
		INSERT INTO conversations (id, user_id, session_id, query, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)
