package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"storynexus/internal/story"
)

func TestChatClient(t *testing.T) {
	t.Run("sends system and user messages", func(t *testing.T) {
		var got struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
				t.Errorf("unexpected authorization header %q", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"x\"}"}}]}`))
		}))
		defer srv.Close()

		client, err := NewChatClient(ChatConfig{Endpoint: srv.URL, APIKey: "secret"})
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		resp, err := client.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "user"})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		text, err := resp.Text()
		if err != nil || text != `{"title":"x"}` {
			t.Fatalf("unexpected text %q, err %v", text, err)
		}
		if got.Model != DefaultChatModel {
			t.Errorf("model = %q, want %q", got.Model, DefaultChatModel)
		}
		if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != "sys" || got.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %#v", got.Messages)
		}
	})

	t.Run("non-2xx is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client, err := NewChatClient(ChatConfig{Endpoint: srv.URL, APIKey: "secret"})
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		_, err = client.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "user"})
		if !errors.Is(err, story.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		var terr *TransportError
		if !errors.As(err, &terr) || terr.StatusCode != http.StatusTooManyRequests || terr.Body != "rate limited" {
			t.Fatalf("unexpected transport error: %#v", err)
		}
	})

	t.Run("requires api key", func(t *testing.T) {
		if _, err := NewChatClient(ChatConfig{}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("rejects empty prompts", func(t *testing.T) {
		client, err := NewChatClient(ChatConfig{APIKey: "secret"})
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		if _, err := client.Generate(context.Background(), Request{SystemPrompt: "sys"}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestFromGemini(t *testing.T) {
	resp, err := fromGemini(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if text, _ := resp.Text(); text != `{"a":1}` {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := fromGemini(&genai.GenerateContentResponse{}); !errors.Is(err, story.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

var testOutline = story.Outline{
	Title:           "Red Sands",
	MainPlot:        "Settle Mars",
	KeyCharacters:   []story.Character{{Name: "Rachel", Description: "scientist"}},
	MajorStoryBeats: []string{"Launch", "Landing"},
}

func TestPrompts(t *testing.T) {
	t.Run("outline", func(t *testing.T) {
		req, err := OutlinePrompt(GameInfo{Genre: "Science Fiction", Theme: "Colonization", AdditionalInfo: "Mars"})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		for _, want := range []string{"Genre: Science Fiction", "Theme: Colonization", "Additional Information: Mars", `"majorStoryBeats"`} {
			if !strings.Contains(req.SystemPrompt, want) {
				t.Errorf("outline prompt missing %q", want)
			}
		}
		if req.UserPrompt == "" {
			t.Errorf("expected user prompt")
		}
	})

	t.Run("world details carry the outline", func(t *testing.T) {
		req, err := WorldDetailsPrompt(testOutline, 25)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		for _, want := range []string{"25-node story", "Title: Red Sands", "- Rachel: scientist", "2. Landing"} {
			if !strings.Contains(req.SystemPrompt, want) {
				t.Errorf("world prompt missing %q", want)
			}
		}
	})

	t.Run("grid node", func(t *testing.T) {
		req, err := GridNodePrompt(GridNodeInput{
			Outline: testOutline,
			World: &story.WorldDetails{
				Locations: []story.Location{{Name: "Olympus", Description: "volcano", PointsOfInterest: []string{"caldera", "rim"}}},
			},
			Neighbors: []Neighbor{{Direction: West, Terrain: "dunes", Content: "Sand everywhere"}},
			Position:  Position{X: 1, Y: 0, Width: 3, Height: 3},
		})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		for _, want := range []string{"WEST: Terrain: dunes, Content: Sand everywhere", "x=1, y=0 in a 3x3 world", "caldera, rim", `"terrain"`, "Title: Red Sands"} {
			if !strings.Contains(req.SystemPrompt, want) {
				t.Errorf("grid prompt missing %q", want)
			}
		}
	})

	t.Run("tree node", func(t *testing.T) {
		root, err := TreeNodePrompt(TreeNodeInput{Outline: testOutline, MaxDepth: 4})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if !strings.Contains(root.SystemPrompt, "opening scene") || strings.Contains(root.SystemPrompt, `"terrain"`) {
			t.Errorf("unexpected root prompt:\n%s", root.SystemPrompt)
		}

		child, err := TreeNodePrompt(TreeNodeInput{
			Outline:  testOutline,
			Parent:   &ParentScene{Content: "The hatch opens", ChoiceText: "Step out"},
			Depth:    4,
			MaxDepth: 4,
		})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		for _, want := range []string{"Previous Scene: The hatch opens", "The player chose: Step out", "deepest point"} {
			if !strings.Contains(child.SystemPrompt, want) {
				t.Errorf("tree prompt missing %q", want)
			}
		}
	})
}

type fakeService struct {
	content string
	err     error
	got     []Request
}

func (f *fakeService) Generate(ctx context.Context, req Request) (*Response, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Choices: []ResponseChoice{{Message: Message{Content: f.content}}}}, nil
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("node from fenced output", func(t *testing.T) {
		svc := &fakeService{content: "Sure!\n```json\n{\"content\":\"x\",\"terrain\":\"ice\",\"choices\":[{\"id\":\"1\",\"text\":\"go\"}]}\n```"}
		node, err := NewGenerator(svc).TreeNode(ctx, TreeNodeInput{Outline: testOutline, MaxDepth: 2})
		if err != nil {
			t.Fatalf("tree node: %v", err)
		}
		if node.Content != "x" || len(node.Choices) != 1 || node.Terrain != "ice" {
			t.Fatalf("unexpected node: %#v", node)
		}
		if len(svc.got) != 1 || !strings.Contains(svc.got[0].SystemPrompt, "Red Sands") {
			t.Fatalf("outline not anchored in request")
		}
	})

	t.Run("transport failure names the call site", func(t *testing.T) {
		svc := &fakeService{err: &TransportError{StatusCode: 502}}
		_, err := NewGenerator(svc).GridNode(ctx, GridNodeInput{Outline: testOutline, Position: Position{Width: 1, Height: 1}})
		if !errors.Is(err, story.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if !strings.HasPrefix(err.Error(), "failed to generate story node: ") {
			t.Fatalf("unexpected error text %q", err.Error())
		}
	})

	t.Run("unparseable outline", func(t *testing.T) {
		svc := &fakeService{content: "no json here"}
		if _, err := NewGenerator(svc).Outline(ctx, GameInfo{Genre: "x"}); !errors.Is(err, story.ErrParseFailure) {
			t.Fatalf("expected ErrParseFailure, got %v", err)
		}
	})

	t.Run("world details", func(t *testing.T) {
		svc := &fakeService{content: `{"locations":[{"name":"Base","description":"dome"}],"environments":[]}`}
		details, err := NewGenerator(svc).WorldDetails(ctx, testOutline, 4)
		if err != nil {
			t.Fatalf("world details: %v", err)
		}
		if len(details.Locations) != 1 || details.Locations[0].Name != "Base" {
			t.Fatalf("unexpected details: %#v", details)
		}
	})
}
