package analysis

import "fmt"

const analysisThinkingPrefix = `**STEP 1: THINKING PROCESS (Recommended):**
*   Before generating the analysis, briefly outline your plan in <thinking> tags.
*   If you include thinking, place the final analysis *after* the </thinking> tag.

**STEP 2: ANALYSIS OUTPUT:**
*   Generate the requested analysis based **strictly** on the text provided below.
*   Follow the specific OUTPUT FORMAT instructions carefully.

--- START DOCUMENT TEXT ---
%s
--- END DOCUMENT TEXT ---
`

// FAQPrompt asks for question/answer pairs grounded in one document
type FAQPrompt struct {
	DocumentText string
}

func (p FAQPrompt) Render() string {
	return fmt.Sprintf(analysisThinkingPrefix, p.DocumentText) + `
**TASK:** Generate 5-7 Frequently Asked Questions (FAQs) with concise answers based ONLY on the text.

**OUTPUT FORMAT (Strict):**
*   Start directly with the first FAQ (after thinking, if used). Do **NOT** include preamble.
*   Format each FAQ as:
    Q: [Question derived ONLY from the text]
    A: [Answer derived ONLY from the text, concise]
*   If the text doesn't support an answer, don't invent one.

**BEGIN OUTPUT (Start with 'Q:' or <thinking>):**
`
}

// TopicsPrompt asks for the document's main topics with short explanations
type TopicsPrompt struct {
	DocumentText string
}

func (p TopicsPrompt) Render() string {
	return fmt.Sprintf(analysisThinkingPrefix, p.DocumentText) + `
**TASK:** Identify the 5-8 most important topics discussed. Provide a 1-2 sentence explanation per topic based ONLY on the text.

**OUTPUT FORMAT (Strict):**
*   Start directly with the first topic (after thinking, if used). Do **NOT** include preamble.
*   Format as a Markdown bulleted list:
    *   **Topic Name:** Brief explanation derived ONLY from the text content (1-2 sentences max).

**BEGIN OUTPUT (Start with '*   **' or <thinking>):**
`
}

// MindmapPrompt asks for a Mermaid mindmap of the document's structure
type MindmapPrompt struct {
	DocumentText string
}

func (p MindmapPrompt) Render() string {
	return fmt.Sprintf(analysisThinkingPrefix, p.DocumentText) + `
**TASK:** Generate a **DETAILED, HIERARCHICAL** mind map diagram using **Mermaid.js MINDMAP syntax**.
The mind map **MUST ONLY** represent topics, sub-topics and concepts found **DIRECTLY in the provided document text**.
Aim for approximately 20-40 nodes if the document content supports it, but prioritize accuracy and clear hierarchy.

**OUTPUT FORMAT (CRITICAL):**
1.  The output **MUST** start **IMMEDIATELY** with the Mermaid mindmap code block (after your thinking block, if any). No preamble.
2.  The entire diagram **MUST** be enclosed in a single ` + "```mermaid ... ```" + ` code block.
3.  The first line inside the block **MUST** be 'mindmap'; the second line the single root node, e.g. root((Document's Central Theme)).
4.  Indent children consistently by 2 or 4 spaces. Node text must be short phrases taken from the document.
5.  Inside the block: no comments, no arrows or flowchart syntax, no HTML, no blank lines between nodes.

**BEGIN OUTPUT (Start with '` + "```mermaid" + `' or <thinking>):**
`
}

// PodcastPrompt asks for a conversational podcast script covering the document
type PodcastPrompt struct {
	DocumentText string
}

func (p PodcastPrompt) Render() string {
	return `You are an engaging podcast host. Your task is to transform the following document text into a conversational podcast script.
The script should sound natural, as if one or two people are discussing the key points of the document.
If creating a dialogue, use speaker tags like "Host:", "Expert:", "Speaker 1:", "Speaker 2:".
If creating a monologue, make it sound like a presenter directly addressing an audience with an engaging, explanatory tone.
Break down complex information into understandable segments. Use conversational language, ask rhetorical questions, and provide clear explanations.
Focus on the main ideas, important details, and any conclusions from the document.
The output should be ONLY the script, ready for text-to-speech. Do NOT include any preamble like "Here's the script:".

Document Text:
--- START DOCUMENT TEXT ---
` + p.DocumentText + `
--- END DOCUMENT TEXT ---

Podcast Script:
`
}
