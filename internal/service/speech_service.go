package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Transcriber converts a recorded answer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer turns question text into an audio artifact and returns its
// URL. Failures are non-fatal; callers serve questions without audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// SpeechService wraps the speech provider for both directions. Synthesized
// audio is cached in redis by text hash so repeated serves of the same
// question reuse one artifact.
type SpeechService struct {
	client  *openai.Client
	cfg     config.SpeechConfig
	storage StorageProvider
	rdb     *redis.Client
}

func NewSpeechService(aiCfg config.AIConfig, cfg config.SpeechConfig, storage StorageProvider, rdb *redis.Client) *SpeechService {
	clientCfg := openai.DefaultConfig(aiCfg.APIKey)
	if aiCfg.BaseURL != "" {
		clientCfg.BaseURL = aiCfg.BaseURL
	}
	return &SpeechService{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		storage: storage,
		rdb:     rdb,
	}
}

func (s *SpeechService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.TranscribeModel,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

func (s *SpeechService) Synthesize(ctx context.Context, text string) (string, error) {
	key := "tts:" + hashText(text)
	if s.rdb != nil {
		if url, err := s.rdb.Get(ctx, key).Result(); err == nil && url != "" {
			return url, nil
		}
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.cfg.TTSModel),
		Input: text,
		Voice: openai.SpeechVoice(s.cfg.TTSVoice),
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	filename := fmt.Sprintf("tts/tts_%s.mp3", hashText(text))
	url, err := s.storage.Upload(ctx, filename, resp, -1, "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("storing synthesized audio failed: %w", err)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, url, 24*time.Hour).Err(); err != nil {
			logger.Log.Warn("caching tts url failed", zap.Error(err))
		}
	}
	return url, nil
}

func hashText(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
