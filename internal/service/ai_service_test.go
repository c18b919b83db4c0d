package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doodle_moodle_backend/internal/config"
)

// fakeAI 测试用补全实现，按调用顺序返回预设回复
type fakeAI struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (f *fakeAI) Chat(prompt string, context string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	reply := ""
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	} else if len(f.replies) > 0 {
		reply = f.replies[len(f.replies)-1]
	}
	f.calls++
	return reply, nil
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"Here is the result:\n{\"a\":1}\nhope it helps", `{"a":1}`},
	}
	for _, c := range cases {
		if got := ExtractJSON(c.in); got != c.want {
			t.Fatalf("ExtractJSON(%q): want=%q got=%q", c.in, c.want, got)
		}
	}
}

func TestAIServiceChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("want bearer token, got %q", got)
		}

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("want model=test-model got=%s", req.Model)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer srv.Close()

	svc := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"})
	reply, err := svc.Chat("ping", "")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "pong" {
		t.Fatalf("want=pong got=%s", reply)
	}
}

func TestAIServiceChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := svc.Chat("ping", ""); err == nil {
		t.Fatal("want error for non-200 status")
	}
}

func TestGenerateSyllabusParsesFencedJSON(t *testing.T) {
	ai := &fakeAI{replies: []string{"```json\n" + `{"topics":[{"title":"Cells","cognitive_level":"understand","subtopics":[{"title":"Membranes","cognitive_level":"remember"}]}]}` + "\n```"}}

	draft, err := GenerateSyllabus(ai, "Biology", "cells are the unit of life")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(draft.Topics) != 1 || draft.Topics[0].Title != "Cells" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if len(draft.Topics[0].Subtopics) != 1 {
		t.Fatalf("want 1 subtopic got=%d", len(draft.Topics[0].Subtopics))
	}
	if !strings.Contains(ai.prompts[0], "Biology") {
		t.Fatal("prompt should name the course")
	}
}

func TestGenerateSyllabusRejectsEmpty(t *testing.T) {
	ai := &fakeAI{replies: []string{`{"topics":[]}`}}
	if _, err := GenerateSyllabus(ai, "Biology", "material"); err == nil {
		t.Fatal("want error for empty syllabus")
	}
}

func TestGenerateQuestionsParses(t *testing.T) {
	ai := &fakeAI{replies: []string{`{"questions":[{"type":"mcq","content":"Q1","difficulty":"easy","topic":"Cells","points":2,"options":[{"content":"a","correct":true},{"content":"b","correct":false}]}]}`}}

	drafts, err := GenerateQuestions(ai, QuestionGenSpec{
		CourseTitle: "Biology",
		Selections:  []TopicSelection{{Topic: "Cells"}},
		MCQCount:    1,
		EasyPercent: 100,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Content != "Q1" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestGenerateQuestionsRejectsGarbage(t *testing.T) {
	ai := &fakeAI{replies: []string{"sorry, I cannot do that"}}
	if _, err := GenerateQuestions(ai, QuestionGenSpec{MCQCount: 1}); err == nil {
		t.Fatal("want error for unparseable reply")
	}
}
