package scenepipeline

import (
	"os"
	"path/filepath"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

func writeAudioBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return orcherr.New(orcherr.JournalIO, "scenepipeline.write_audio", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return orcherr.New(orcherr.JournalIO, "scenepipeline.write_audio", err)
	}
	return nil
}
