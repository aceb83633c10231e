// Package assembler implements the §6 external assembler contract
// (check_installed/render) against a real local ffmpeg/ffprobe
// installation. It is grounded directly on the teacher's
// internal/services/ffmpeg.go — CreateTempFile, Cleanup,
// ConcatenateClips, MixBackgroundMusic, and GetVideoDuration are
// adapted wholesale, just pointed at an EDL's decisions instead of the
// teacher's fixed per-project clip list. A missing ffmpeg binary is
// non-fatal: CheckInstalled reports false and the caller completes the
// run with only the EDL, per spec.md §6. CheckInstalled does not look for
// ffprobe; without it a render still runs and RenderResult.DurationSec
// stays 0.
package assembler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/assembly"
	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// InstallInfo is check_installed()'s result.
type InstallInfo struct {
	Installed bool
	Version   string
	Path      string
}

// RenderResult is render()'s result.
type RenderResult struct {
	Success    bool
	OutputPath string
	DurationSec float64
	FileSizeBytes int64
	RenderTime  time.Duration
	Error       string
}

// Assembler shells out to a local ffmpeg/ffprobe installation.
type Assembler struct {
	tempDir string
}

func New(tempDir string) *Assembler {
	_ = os.MkdirAll(tempDir, 0o755)
	return &Assembler{tempDir: tempDir}
}

// CheckInstalled reports whether ffmpeg is on PATH, per §6's
// check_installed() → {installed, version?, path?}.
func (a *Assembler) CheckInstalled(ctx context.Context) InstallInfo {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return InstallInfo{Installed: false}
	}
	out, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	version := ""
	if err == nil {
		lines := strings.SplitN(string(out), "\n", 2)
		version = strings.TrimSpace(lines[0])
	}
	return InstallInfo{Installed: true, Version: version, Path: path}
}

// CreateTempFile mirrors the teacher's FFmpegService.CreateTempFile.
func (a *Assembler) CreateTempFile(filename string) string {
	return filepath.Join(a.tempDir, filename)
}

// Cleanup mirrors the teacher's FFmpegService.Cleanup.
func (a *Assembler) Cleanup(paths ...string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

// Render executes render(edl, candidate_id, audio_tracks, run_id):
// concatenates the chosen candidate's clips in order, mixes in any
// MUSIC track, and reports the final file's duration and size. Render
// refuses a candidate that carries ContinuityIssues (the planner's
// missing-file check); otherwise it assumes every path it's given exists.
func (a *Assembler) Render(ctx context.Context, edl domain.EditDecisionList, candidateID string, tracks []assembly.AudioTrack, runID string) RenderResult {
	started := time.Now()
	candidate := findCandidate(edl, candidateID)
	if candidate == nil {
		return RenderResult{Error: fmt.Sprintf("no candidate %q in EDL %s", candidateID, edl.EDLID)}
	}
	if len(candidate.ContinuityIssues) > 0 {
		return RenderResult{Error: fmt.Sprintf("candidate %q has unresolved continuity issues: %v", candidateID, candidate.ContinuityIssues)}
	}

	clipPaths := make([]string, len(candidate.Decisions))
	for i, d := range candidate.Decisions {
		clipPaths[i] = d.VideoURL
	}

	concatPath := a.CreateTempFile(fmt.Sprintf("%s_%s_concat.mp4", runID, candidateID))
	if err := a.concatenateClips(ctx, clipPaths, concatPath); err != nil {
		return RenderResult{Error: err.Error(), RenderTime: time.Since(started)}
	}

	outputPath := a.CreateTempFile(fmt.Sprintf("%s_%s_final.mp4", runID, candidateID))
	finalPath := concatPath
	if musicPath := firstMusicTrack(tracks); musicPath != "" {
		if err := a.mixBackgroundMusic(ctx, concatPath, musicPath, outputPath); err != nil {
			return RenderResult{Error: err.Error(), RenderTime: time.Since(started)}
		}
		finalPath = outputPath
		a.Cleanup(concatPath)
	} else if concatPath != outputPath {
		if err := os.Rename(concatPath, outputPath); err == nil {
			finalPath = outputPath
		}
	}

	durationSec, _ := a.videoDurationSec(ctx, finalPath)
	var size int64
	if info, err := os.Stat(finalPath); err == nil {
		size = info.Size()
	}

	return RenderResult{
		Success:       true,
		OutputPath:    finalPath,
		DurationSec:   durationSec,
		FileSizeBytes: size,
		RenderTime:    time.Since(started),
	}
}

func findCandidate(edl domain.EditDecisionList, candidateID string) *domain.EditCandidate {
	for i := range edl.Candidates {
		if edl.Candidates[i].CandidateID == candidateID {
			return &edl.Candidates[i]
		}
	}
	return nil
}

func firstMusicTrack(tracks []assembly.AudioTrack) string {
	for _, t := range tracks {
		if t.Type == domain.AudioTrackMusic {
			return t.AssetPath
		}
	}
	return ""
}

// concatenateClips adapts the teacher's FFmpegService.ConcatenateClips.
func (a *Assembler) concatenateClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := a.CreateTempFile("concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", "-y", outputPath}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}
	return nil
}

// mixBackgroundMusic adapts the teacher's FFmpegService.MixBackgroundMusic
// with its fixed 12%-volume music bed; the MUSIC track's planned GainDB
// is not applied.
func (a *Assembler) mixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string) error {
	if _, err := os.Stat(musicPath); err != nil {
		return fmt.Errorf("background music file not found: %s", musicPath)
	}

	filterComplex := "[0:a]volume=1.0[narration];[1:a]volume=0.12[music];[narration][music]amix=inputs=2:duration=first:dropout_transition=3[aout]"
	args := []string{
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filterComplex,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mix background music failed: %w", err)
	}
	return nil
}

// videoDurationSec adapts the teacher's FFmpegService.GetVideoDuration.
func (a *Assembler) videoDurationSec(ctx context.Context, videoPath string) (float64, error) {
	args := []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", videoPath}
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe video duration failed: %w", err)
	}
	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse video duration: %w", err)
	}
	return durationSec, nil
}
