package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"doodle_moodle_backend/internal/config"
	"doodle_moodle_backend/pkg/monitoring"
)

// Completer 同步补全接口，方便测试时注入假实现
type Completer interface {
	Chat(prompt string, context string) (string, error)
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		// 生成大纲/出题是长请求，超时放宽
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) Chat(prompt string, context string) (string, error) {
	defer monitoring.ObserveAI("chat", time.Now())

	messages := []AIChatMessage{}

	if context != "" {
		messages = append(messages, AIChatMessage{
			Role:    "system",
			Content: context,
		})
	} else {
		messages = append(messages, AIChatMessage{
			Role:    "system",
			Content: "You are a teaching assistant for an online course platform. Answer concisely and accurately.",
		})
	}

	messages = append(messages, AIChatMessage{
		Role:    "user",
		Content: prompt,
	})

	reqBody := ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}

// ---- 大纲 / 出题 的结构化输出 ----

type SyllabusDraft struct {
	Topics []TopicDraft `json:"topics"`
}

type TopicDraft struct {
	Title          string         `json:"title"`
	CognitiveLevel string         `json:"cognitive_level"`
	Subtopics      []SubtopicDraft `json:"subtopics"`
}

type SubtopicDraft struct {
	Title          string `json:"title"`
	CognitiveLevel string `json:"cognitive_level"`
}

type OptionDraft struct {
	Content string `json:"content"`
	Correct bool   `json:"correct"`
}

type QuestionDraft struct {
	Type        string        `json:"type"`
	Content     string        `json:"content"`
	Difficulty  string        `json:"difficulty"`
	Topic       string        `json:"topic"`
	Subtopic    string        `json:"subtopic"`
	Points      int           `json:"points"`
	Explanation string        `json:"explanation"`
	Options     []OptionDraft `json:"options"`
}

// TopicSelection 出题时指定的大纲范围
type TopicSelection struct {
	Topic     string   `json:"topic"`
	Subtopics []string `json:"subtopics"`
}

type QuestionGenSpec struct {
	CourseTitle     string
	Material        string
	Selections      []TopicSelection
	MCQCount        int
	MSQCount        int
	SubjectiveCount int
	AcademicLevel   string
	EasyPercent     int
	MediumPercent   int
	HardPercent     int
}

const syllabusSystem = "You are a curriculum designer. You respond with a single JSON object and nothing else."

// GenerateSyllabus 根据课程资料文本生成嵌套大纲
func GenerateSyllabus(ai Completer, courseTitle string, material string) (*SyllabusDraft, error) {
	defer monitoring.ObserveAI("generate_syllabus", time.Now())

	prompt := fmt.Sprintf(`Build a course syllabus for the course %q from the material below.
Return JSON: {"topics":[{"title":...,"cognitive_level":"remember|understand|apply|analyze|evaluate|create","subtopics":[{"title":...,"cognitive_level":...}]}]}.
Use 4-10 topics, each with 2-6 subtopics, ordered as they should be taught.

Material:
%s`, courseTitle, material)

	raw, err := ai.Chat(prompt, syllabusSystem)
	if err != nil {
		return nil, err
	}
	return parseSyllabus(raw)
}

// MergeSyllabus 新资料上传后与已有大纲合并，保留旧主题并补充新内容
func MergeSyllabus(ai Completer, courseTitle string, existing *SyllabusDraft, material string) (*SyllabusDraft, error) {
	defer monitoring.ObserveAI("merge_syllabus", time.Now())

	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`The course %q already has this syllabus:
%s

New material was uploaded. Merge it into the syllabus: keep existing topics, extend them with new subtopics where the material fits, and append new topics for material that fits nowhere.
Return the full merged syllabus as JSON in the same shape.

New material:
%s`, courseTitle, string(existingJSON), material)

	raw, err := ai.Chat(prompt, syllabusSystem)
	if err != nil {
		return nil, err
	}
	return parseSyllabus(raw)
}

func parseSyllabus(raw string) (*SyllabusDraft, error) {
	var draft SyllabusDraft
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &draft); err != nil {
		return nil, fmt.Errorf("invalid syllabus from AI: %w", err)
	}
	if len(draft.Topics) == 0 {
		return nil, fmt.Errorf("AI returned an empty syllabus")
	}
	return &draft, nil
}

// GenerateQuestions 一次调用生成整套题目
func GenerateQuestions(ai Completer, spec QuestionGenSpec) ([]QuestionDraft, error) {
	defer monitoring.ObserveAI("generate_questions", time.Now())

	scope, err := json.Marshal(spec.Selections)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write quiz questions for the course %q at %s level, limited to these syllabus topics:\n%s\n\n",
		spec.CourseTitle, spec.AcademicLevel, string(scope))
	fmt.Fprintf(&sb, "Counts: %d mcq (exactly one correct option), %d msq (two or more correct options), %d subjective (no options).\n",
		spec.MCQCount, spec.MSQCount, spec.SubjectiveCount)
	if spec.EasyPercent != 0 || spec.MediumPercent != 0 || spec.HardPercent != 0 {
		fmt.Fprintf(&sb, "Difficulty mix: %d%% easy, %d%% medium, %d%% hard.\n", spec.EasyPercent, spec.MediumPercent, spec.HardPercent)
	} else {
		sb.WriteString("Choose a sensible difficulty mix across easy, medium and hard.\n")
	}
	sb.WriteString(`Return JSON: {"questions":[{"type":"mcq|msq|subjective","content":...,"difficulty":"easy|medium|hard","topic":...,"subtopic":...,"points":N,"explanation":...,"options":[{"content":...,"correct":true|false}]}]}. Every question must name a topic from the scope.`)
	if spec.Material != "" {
		fmt.Fprintf(&sb, "\n\nGround the questions in this material:\n%s", spec.Material)
	}

	raw, err := ai.Chat(sb.String(), "You are an exam author. You respond with a single JSON object and nothing else.")
	if err != nil {
		return nil, err
	}

	var out struct {
		Questions []QuestionDraft `json:"questions"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("invalid questions from AI: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("AI returned no questions")
	}
	return out.Questions, nil
}

// AttemptSummary 交给 AI 生成反馈用的答题概要
type AttemptSummary struct {
	CourseTitle     string   `json:"course_title"`
	AssessmentTitle string   `json:"assessment_title"`
	Score           float64  `json:"score"`
	MaxScore        float64  `json:"max_score"`
	WeakTopics      []string `json:"weak_topics"`
	StrongTopics    []string `json:"strong_topics"`
}

// GenerateFeedback 根据答题情况生成个性化反馈，失败时调用方应降级为空反馈
func GenerateFeedback(ai Completer, summary AttemptSummary) (string, error) {
	defer monitoring.ObserveAI("generate_feedback", time.Now())

	data, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`A student finished a quiz. Their performance:
%s

Write 2-4 sentences of feedback addressed to the student: what they did well, which topics to revisit, and one concrete next step. Plain text, no markdown.`, string(data))

	return ai.Chat(prompt, "You are an encouraging course tutor.")
}

// ExtractJSON 剥掉模型常见的 ```json 围栏，再退回到首尾花括号截取
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
