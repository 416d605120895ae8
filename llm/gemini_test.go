package llm

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/wyemhu12/vikini-sub002/types"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig

	text      string
	err       error
	chunks    []string
	streamErr error
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return textResponse(f.text), nil
}

func (f *fakeModels) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.model, f.contents, f.config = model, contents, config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	models := &fakeModels{text: "A short title"}
	temp := float32(0.2)
	c := newGeminiClient(models, GeminiConfig{Temperature: &temp})

	got, err := c.Generate(context.Background(), Request{
		System:   "Be brief.",
		Contents: []Content{UserText("hello"), {Role: RoleModel, Parts: []string{"hi", " there"}}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "A short title" {
		t.Errorf("Generate = %q, want %q", got, "A short title")
	}
	if models.model != DefaultModel {
		t.Errorf("model = %q, want %q", models.model, DefaultModel)
	}
	if len(models.contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(models.contents))
	}
	if models.contents[1].Role != string(genai.RoleModel) {
		t.Errorf("contents[1].Role = %q, want %q", models.contents[1].Role, string(genai.RoleModel))
	}
	if got := models.contents[1].Parts[0].Text; got != "hi there" {
		t.Errorf("contents[1] text = %q, want %q", got, "hi there")
	}
	if models.config.SystemInstruction == nil || models.config.SystemInstruction.Parts[0].Text != "Be brief." {
		t.Errorf("SystemInstruction = %+v, want %q", models.config.SystemInstruction, "Be brief.")
	}
	if models.config.Temperature == nil || *models.config.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", models.config.Temperature)
	}
}

func TestGeminiClient_RequestOverrides(t *testing.T) {
	models := &fakeModels{text: "ok"}
	def := float32(0.9)
	c := newGeminiClient(models, GeminiConfig{Model: "gemini-2.5-pro", Temperature: &def})

	override := float32(0)
	if _, err := c.Generate(context.Background(), Request{
		Model: "gemini-2.0-flash", Temperature: &override, MaxOutputTokens: 64,
		Contents: []Content{UserText("x")},
	}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if models.model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want %q", models.model, "gemini-2.0-flash")
	}
	if *models.config.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", *models.config.Temperature)
	}
	if models.config.MaxOutputTokens != 64 {
		t.Errorf("MaxOutputTokens = %d, want 64", models.config.MaxOutputTokens)
	}
	if models.config.SystemInstruction != nil {
		t.Error("SystemInstruction set for empty System")
	}
}

func TestGeminiClient_GenerateErrors(t *testing.T) {
	boom := errors.New("quota exhausted")
	c := newGeminiClient(&fakeModels{err: boom}, GeminiConfig{})
	if _, err := c.Generate(context.Background(), Request{}); !errors.Is(err, boom) {
		t.Errorf("Generate err = %v, want wrapped %v", err, boom)
	}

	c = newGeminiClient(&fakeModels{text: ""}, GeminiConfig{})
	if _, err := c.Generate(context.Background(), Request{}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate err = %v, want ErrEmptyResponse", err)
	}
}

func TestGeminiClient_Stream(t *testing.T) {
	boom := errors.New("connection reset")
	models := &fakeModels{chunks: []string{"Hello", "", " world"}, streamErr: boom}
	c := newGeminiClient(models, GeminiConfig{})

	var deltas []string
	var gotErr error
	for d, err := range c.Stream(context.Background(), Request{Contents: []Content{UserText("hi")}}) {
		if err != nil {
			gotErr = err
			break
		}
		deltas = append(deltas, d)
	}
	if got := strings.Join(deltas, "|"); got != "Hello| world" {
		t.Errorf("deltas = %q, want %q", got, "Hello| world")
	}
	if !errors.Is(gotErr, boom) {
		t.Errorf("stream err = %v, want wrapped %v", gotErr, boom)
	}
}

func TestGeminiClient_StreamEarlyBreak(t *testing.T) {
	c := newGeminiClient(&fakeModels{chunks: []string{"a", "b", "c"}}, GeminiConfig{})
	var n int
	for range c.Stream(context.Background(), Request{}) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterations = %d, want 2", n)
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), GeminiConfig{}); err == nil {
		t.Error("NewGeminiClient without key err = nil, want error")
	}
}

func TestFromHistory(t *testing.T) {
	got := FromHistory([]types.Message{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleUser, Content: "q"},
		{Role: types.RoleAssistant, Content: "a"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Role != RoleUser || got[0].Text() != "q" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Role != RoleModel || got[1].Text() != "a" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestFakeClient(t *testing.T) {
	f := &FakeClient{Replies: []string{"one", "two"}}
	ctx := context.Background()
	for _, want := range []string{"one", "two", "two"} {
		got, err := f.Generate(ctx, Request{})
		if err != nil || got != want {
			t.Errorf("Generate = %q, %v; want %q", got, err, want)
		}
	}
	if n := len(f.Calls()); n != 3 {
		t.Errorf("len(Calls) = %d, want 3", n)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	f = &FakeClient{Deltas: []string{"a", "b"}}
	for _, err := range f.Stream(cancelled, Request{}) {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("stream err = %v, want context.Canceled", err)
		}
	}
}
