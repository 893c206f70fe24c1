// Package thumbnail extracts a representative frame from a video file and
// writes it as a downscaled JPEG. Decoding is delegated to ffprobe/ffmpeg;
// every failure turns into a plain false, never an error escaping upward.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	// DefaultPosition picks the middle frame.
	DefaultPosition = 0.5
	// maxWidth caps thumbnail width; larger frames are downscaled keeping
	// aspect ratio.
	maxWidth = 640
	// jpegQuality is the encode quality of written thumbnails.
	jpegQuality = 85
)

type Options struct {
	// FfmpegPath and FfprobePath locate the external tools; empty values
	// fall back to $PATH lookup.
	FfmpegPath  string
	FfprobePath string
	Logger      zerolog.Logger
}

// Extractor generates thumbnails from video files.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	logger  zerolog.Logger
}

func New(o *Options) *Extractor {
	e := &Extractor{
		ffmpeg:  o.FfmpegPath,
		ffprobe: o.FfprobePath,
		logger:  o.Logger.With().Str("component", "thumbnail").Logger(),
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	return e
}

// probeJSON is the subset of ffprobe output we read.
type probeJSON struct {
	Streams []struct {
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Extract decodes one frame at the given relative position (0.0 to 1.0) of
// the video and writes it to outputPath as a JPEG, creating parent
// directories as needed. Returns false when the video cannot be opened, has
// no decodable frames, or any step of the pipeline fails.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputPath string, position float64) bool {
	if position < 0 || position > 1 {
		position = DefaultPosition
	}

	frames, duration, fps, ok := e.probe(ctx, videoPath)
	if !ok || frames == 0 {
		return false
	}

	targetFrame := int(float64(frames) * position)
	var seek float64
	if fps > 0 {
		seek = float64(targetFrame) / fps
	} else {
		seek = duration * position
	}

	frame, ok := e.decodeFrame(ctx, videoPath, seek)
	if !ok {
		return false
	}

	w, h := scaledSize(frame.Bounds().Dx(), frame.Bounds().Dy())
	if w != frame.Bounds().Dx() {
		// Box is the area-averaging filter, matching how downscaled video
		// frames are expected to look.
		frame = imaging.Resize(frame, w, h, imaging.Box)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		e.logger.Warn().Err(err).Str("path", outputPath).Msg("failed to create thumbnail directory")
		return false
	}
	out, err := os.Create(outputPath)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", outputPath).Msg("failed to create thumbnail file")
		return false
	}
	if err := imaging.Encode(out, frame, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		out.Close()
		os.Remove(outputPath)
		e.logger.Warn().Err(err).Str("path", outputPath).Msg("failed to encode thumbnail")
		return false
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return false
	}
	return true
}

// probe inspects the first video stream. Returns frame count, duration in
// seconds and frame rate; ok is false when the file cannot be opened.
func (e *Extractor) probe(ctx context.Context, videoPath string) (frames int, duration, fps float64, ok bool) {
	cmd := exec.CommandContext(ctx, e.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate,duration",
		"-show_entries", "format=duration",
		"-print_format", "json",
		videoPath)
	output, err := cmd.Output()
	if err != nil {
		e.logger.Debug().Err(err).Str("video", videoPath).Msg("ffprobe failed")
		return 0, 0, 0, false
	}

	var probe probeJSON
	if err := json.Unmarshal(output, &probe); err != nil || len(probe.Streams) == 0 {
		return 0, 0, 0, false
	}
	stream := probe.Streams[0]

	duration, _ = strconv.ParseFloat(stream.Duration, 64)
	if duration == 0 {
		duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}
	fps = parseFrameRate(stream.AvgFrameRate)

	frames, _ = strconv.Atoi(stream.NbFrames)
	if frames == 0 {
		// Containers like webm do not carry nb_frames; estimate from
		// duration and frame rate.
		frames = int(duration * fps)
	}
	return frames, duration, fps, true
}

// decodeFrame has ffmpeg seek to the timestamp and emit a single PNG frame
// on stdout.
func (e *Extractor) decodeFrame(ctx context.Context, videoPath string, seek float64) (image.Image, bool) {
	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1")
	output, err := cmd.Output()
	if err != nil || len(output) == 0 {
		e.logger.Debug().Err(err).Str("video", videoPath).Msg("ffmpeg frame decode failed")
		return nil, false
	}
	frame, _, err := image.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, false
	}
	return frame, true
}

// parseFrameRate parses ffprobe's "num/den" rate notation.
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// scaledSize returns the output dimensions for a frame: width capped at
// maxWidth with height scaled to preserve aspect ratio.
func scaledSize(w, h int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	scale := float64(maxWidth) / float64(w)
	return maxWidth, int(math.Round(float64(h) * scale))
}
