package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo holds the probe result of an uploaded answer recording.
type AudioInfo struct {
	Duration float64 `json:"duration"` // seconds
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

// ProbeAudio inspects an uploaded recording. Zero-length or unreadable
// files surface as an error so transcription can degrade early.
func ProbeAudio(path string) (*AudioInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("audio file not accessible: %w", err)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("audio file is empty")
	}

	jsonOutput, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probing audio failed: %w", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("parsing probe output failed: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		duration = 0
	}

	return &AudioInfo{
		Duration: duration,
		Format:   result.Format.Format,
		Size:     fileInfo.Size(),
	}, nil
}

// ConvertToWav transcodes a browser recording (webm/ogg/m4a) into a 16kHz
// mono wav the speech provider accepts. Returns the output path.
func ConvertToWav(inputPath string) (string, error) {
	outputPath := inputPath + ".wav"
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", err
	}

	err := ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"ar":  "16000",
			"ac":  "1",
			"f":   "wav",
			"y":   "",
			"map": "0:a",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return "", fmt.Errorf("audio conversion failed: %w", err)
	}
	return outputPath, nil
}
