// internal/workers/recommendation/analyze-requirements/prompts.go
package analyzerequirements

import "fmt"

const requirementsPrompt = `You are an expert API consultant. Analyze the following project description and extract specific API requirements.

Project Description: %s

Additional Context: %s

Please provide a JSON response with the following structure:
{
    "project_type": "string (e.g., web app, mobile app, e-commerce, etc.)",
    "required_categories": ["array of API categories needed"],
    "specific_features": ["array of specific features/functionality needed"],
    "technical_requirements": ["array of technical requirements"],
    "priority_level": "high/medium/low",
    "budget_consideration": "free/freemium/paid",
    "summary": "brief summary of what APIs are needed"
}

Focus on identifying APIs for: authentication, payments, data storage, external services, analytics, notifications, etc.`

// The file prompt asks for a terser shape; missing fields are backfilled.
const filePrompt = `Analyze this README and extract what APIs are needed. Be concise.

File: %s

%s

Respond in JSON format:
{
    "project_type": "brief type",
    "summary": "one sentence: what APIs this project needs",
    "budget_consideration": "free/freemium/paid/unknown"
}

Keep response short and focused.`

func buildRequirementsPrompt(description, additionalContext string) string {
	return fmt.Sprintf(requirementsPrompt, description, additionalContext)
}

func buildFilePrompt(content, filename string) string {
	return fmt.Sprintf(filePrompt, filename, content)
}
