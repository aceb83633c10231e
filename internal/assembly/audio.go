package assembly

import "github.com/productionorchestrator/orchestrator/internal/domain"

// BuildAudioTracks assembles the mixable track list handed to the
// external assembler alongside a chosen candidate (§6's
// render(edl, candidate_id, audio_tracks, run_id)). Each scene's
// voiceover becomes one VOICEOVER track at its decision's start_time;
// an optional pilot-level music bed becomes one MUSIC track spanning
// the whole candidate, ducked by MusicDuckDB over its full span whenever
// the candidate has any voiceover track (there is no per-segment duck).
func BuildAudioTracks(candidate domain.EditCandidate, musicAssetPath string) []AudioTrack {
	var tracks []AudioTrack
	for _, d := range candidate.Decisions {
		if d.AudioURL == "" {
			continue
		}
		tracks = append(tracks, AudioTrack{
			Type:        domain.AudioTrackVoiceover,
			AssetPath:   d.AudioURL,
			GainDB:      domain.DefaultGainDB[domain.AudioTrackVoiceover],
			StartSec:    d.StartTime,
			DurationSec: d.Duration,
		})
	}

	if musicAssetPath != "" {
		gain := domain.DefaultGainDB[domain.AudioTrackMusic]
		if len(tracks) > 0 {
			// music overlaps voiceover for the whole candidate in the
			// common case (a continuous bed under narrated scenes), so
			// duck for the full span rather than computing per-segment
			// overlap windows — a finer per-segment duck automation is
			// the external assembler's job once it has the real tracks.
			gain += domain.MusicDuckDB
		}
		tracks = append(tracks, AudioTrack{
			Type:        domain.AudioTrackMusic,
			AssetPath:   musicAssetPath,
			GainDB:      gain,
			StartSec:    0,
			DurationSec: candidate.TotalDuration,
		})
	}
	return tracks
}
