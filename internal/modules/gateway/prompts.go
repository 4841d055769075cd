package gateway

import (
	_ "embed"
	"fmt"
	"strings"
)

// SystemPrompt is sent verbatim on every chat call; any byte change invalidates the provider's prompt cache.
//
//go:embed prompts/system_v1.txt
var SystemPrompt string

// HandoffInstruction asks for the clinician summary as a single JSON object.
//
//go:embed prompts/handoff_v1.txt
var HandoffInstruction string

const summaryInstruction = "Summarize the key themes, emotions, and topics from this mental health support conversation in 2-3 sentences. Focus on what the person is going through and any coping strategies discussed. Do not include any personally identifying information.\n\n"

// SummaryPrompt wraps a transcript in the summarization instruction.
func SummaryPrompt(transcript string) string {
	return fmt.Sprintf("%s%s", summaryInstruction, transcript)
}

const matchInstruction = `Based on this conversation context from a mental health support session, identify the most relevant support resources. Return ONLY a JSON object with "resourceIds" (array of up to 5 resource IDs) and "handoffMessage" (a brief, empathetic 1-2 sentence message introducing the resources).`

// ResourceMatchPrompt pairs the conversation excerpt with the one-line-per-resource catalog.
func ResourceMatchPrompt(conversation string, catalog []string) string {
	var b strings.Builder
	b.WriteString(matchInstruction)
	b.WriteString("\n\nConversation:\n")
	b.WriteString(conversation)
	b.WriteString("\n\nAvailable resources:\n")
	b.WriteString(strings.Join(catalog, "\n"))
	b.WriteString("\n\nReturn valid JSON only, no markdown.")
	return b.String()
}
