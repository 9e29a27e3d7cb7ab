package synthesis

import "strings"

const personaPreamble = "You are a tutor with in-depth knowledge across all engineering subjects, supporting an academic audience from undergraduates to PhD scholars."

// AnswerPrompt carries the fields of the final synthesis prompt. The
// Reasoning flag selects the variant that demands a delimited reasoning
// block; GeneralKnowledge lifts the context-only restriction.
type AnswerPrompt struct {
	Question         string
	History          string
	Context          string
	Reasoning        bool
	GeneralKnowledge bool
}

// Render produces the full prompt sent to the model
func (p AnswerPrompt) Render() string {
	var sb strings.Builder

	sb.WriteString(personaPreamble)
	sb.WriteString("\n")
	if p.GeneralKnowledge {
		sb.WriteString(`Your main goal is to answer the user's query based on the provided context chunks. If the context is empty or unrelated, fall back on your general knowledge to produce a helpful, technically detailed answer. Do **not** say "I don't know" or "no information found" — instead, provide the best academic response you can.`)
	} else {
		sb.WriteString(`Your main goal is to answer the user's query based on the provided context chunks. If the context is empty or unrelated, or does not contain enough information to answer the query, you MUST state: "I could not find this information in the uploaded document." Do NOT use general knowledge in that case.`)
	}
	sb.WriteString("\n\n**CONVERSATION HISTORY:**\n")
	if p.History == "" {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(p.History + "\n")
	}
	sb.WriteString("\n**PROVIDED CONTEXT:**\n--- START CONTEXT ---\n")
	sb.WriteString(p.Context)
	sb.WriteString("\n--- END CONTEXT ---\n\n")

	if p.Reasoning {
		sb.WriteString(`**INSTRUCTIONS (Detailed - CoT):**
**STEP 1: THINKING PROCESS (MANDATORY):**
*   Begin your response with a <thinking> block outlining how you will use the provided context to answer.
*   Place the final answer *after* the </thinking> tag.

**STEP 2: FINAL ANSWER:**
*   Provide a comprehensive, detailed and helpful answer to the user query.
*   **Prioritize Context:** Base your answer primarily on information within the PROVIDED CONTEXT, and elaborate on every relevant detail found there.
*   **Cite Sources:** When using information directly from a context chunk, you MUST cite its number like [1], [2], [1][3].
*   Be academic, organized, and use markdown formatting (headings, bullet points, equations if needed).
`)
	} else {
		sb.WriteString(`**INSTRUCTIONS (Concise):**
*   Answer the user's query concisely.
*   Prioritize information from the PROVIDED CONTEXT and cite sources [1], [2], etc.
*   Do NOT include any "thinking process" or <thinking> tags.
*   Be direct and to the point.
`)
	}

	sb.WriteString("\n**USER QUERY:**\n\"" + p.Question + "\"\n")
	return sb.String()
}
