package sqlgen

import (
	"strings"
	"testing"

	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/infra/llm"
)

func TestBuildPromptCarriesFixedSchema(t *testing.T) {
	t.Parallel()

	// No retrieval context at all: the system message must still name the
	// tables, their columns and the worked examples.
	msgs := BuildPrompt("show floats", nil, nil)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	sys := msgs[0].Content
	for _, want := range []string{"argo_floats", "argo_profiles", "temperature_celsius", "Examples:", "wmo_id = 2902746"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if msgs[1].Role != "user" || msgs[1].Content != "show floats" {
		t.Errorf("user message = %+v", msgs[1])
	}
}

func TestBuildPromptAppendsChunksAndHistory(t *testing.T) {
	t.Parallel()

	chunks := []knowledge.Chunk{{Title: "Named ocean regions", Content: "Arabian Sea: lat 8 to 30"}}
	history := []llm.Message{{Role: "user", Content: "earlier question"}}

	msgs := BuildPrompt("floats in the arabian sea", chunks, history)
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "Named ocean regions") {
		t.Error("retrieved chunk missing from system prompt")
	}
	if msgs[1].Content != "earlier question" {
		t.Errorf("history message = %+v", msgs[1])
	}
}

func TestBuildCorrectionPromptAppendsRejection(t *testing.T) {
	t.Parallel()

	prev := BuildPrompt("show floats", nil, nil)
	msgs := BuildCorrectionPrompt(prev, "DELETE FROM argo_floats", "forbidden statement")
	if len(msgs) != len(prev)+2 {
		t.Fatalf("messages = %d, want %d", len(msgs), len(prev)+2)
	}
	if msgs[len(msgs)-2].Role != "assistant" || msgs[len(msgs)-2].Content != "DELETE FROM argo_floats" {
		t.Errorf("rejected statement message = %+v", msgs[len(msgs)-2])
	}
	if !strings.Contains(msgs[len(msgs)-1].Content, "forbidden statement") {
		t.Error("rejection reason missing")
	}
}
