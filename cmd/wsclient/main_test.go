package main

import (
	"bytes"
	"strings"
	"testing"

	"live-caption-service/internal/models"
)

func TestRender(t *testing.T) {
	tr := "Cześć."
	snap := models.Snapshot{
		Type:      models.SnapshotType,
		Sentences: []models.SentenceView{{Sentence: "Hi.", Translation: &tr}},
		Interim:   []models.SentenceView{{Sentence: "How are"}},
	}

	var buf bytes.Buffer
	render(&buf, snap)
	out := buf.String()

	for _, want := range []string{"Hi.\n", "  > Cześć.\n", "… How are\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Index(out, "Hi.") > strings.Index(out, "How are") {
		t.Error("interim line rendered before finalized line")
	}
}
