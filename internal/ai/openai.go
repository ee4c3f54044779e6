package ai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Transcriber, Responder and Synthesizer on the
// OpenAI API (Whisper, chat completions, speech). Per-stage timeouts are the
// caller's job via ctx.
type OpenAIProvider struct {
	client *openai.Client

	sttModel string
	llmModel string
	ttsModel string
	ttsVoice string
}

func NewOpenAIProvider(apiKey, sttModel, llmModel, ttsModel, ttsVoice string) *OpenAIProvider {
	return &OpenAIProvider{
		client:   openai.NewClient(apiKey),
		sttModel: sttModel,
		llmModel: llmModel,
		ttsModel: ttsModel,
		ttsVoice: ttsVoice,
	}
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.sttModel,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(audio),
		Language: language,
	})
	if err != nil {
		return "", classify("stt", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (p *OpenAIProvider) Respond(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.llmModel,
		Temperature: 0.4,
		MaxTokens:   200,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify("llm", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Stage: "llm", Kind: KindInvalidResponse, Err: errors.New("empty completion")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	_ = language // the voice model handles the language from the text itself
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(p.ttsVoice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, classify("tts", err)
	}
	defer resp.Close()
	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &Error{Stage: "tts", Kind: KindUnavailable, Err: err}
	}
	if len(audio) == 0 {
		return nil, &Error{Stage: "tts", Kind: KindInvalidResponse, Err: errors.New("empty audio")}
	}
	return audio, nil
}

// classify maps SDK errors onto the retryability taxonomy.
func classify(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Stage: stage, Kind: KindTimeout, Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &Error{Stage: stage, Kind: KindRateLimited, Err: err}
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return &Error{Stage: stage, Kind: KindUnauthorized, Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &Error{Stage: stage, Kind: KindUnavailable, Err: err}
		default:
			return &Error{Stage: stage, Kind: KindInvalidResponse, Err: err}
		}
	}
	return &Error{Stage: stage, Kind: KindUnavailable, Err: err}
}
