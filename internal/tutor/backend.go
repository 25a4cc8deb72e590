package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/evolvecode/gridtutor/internal/curriculum"
	"github.com/evolvecode/gridtutor/internal/llm"
	"github.com/evolvecode/gridtutor/internal/types"
)

// Fallback texts used whenever the backend cannot answer.
const (
	FallbackNoKey   = "I need an API key to help you!"
	FallbackReply   = "My safety protocols prevented a response, or the system is busy. Let's focus on the code!"
	FallbackMission = "Explore the editor!"
)

// Request is the context sent with every backend call.
type Request struct {
	Stage    types.Stage
	Mission  string
	Lesson   curriculum.Lesson
	Program  []string
	Question string
}

// Backend supplies free-text tutoring. Replies are opaque strings; the
// session appends them to the chat log as they are.
type Backend interface {
	// Ready reports whether the backend has credentials. A session never
	// calls Reply or Mission on a backend that is not ready.
	Ready() bool
	Reply(ctx context.Context, req Request) (string, error)
	Mission(ctx context.Context, req Request) (string, error)
}

// chatClient is the subset of *llm.Client the backend uses.
type chatClient interface {
	Configured() bool
	Chat(ctx context.Context, system, user string) (string, llm.Usage, error)
}

// LLMBackend answers through an OpenAI-compatible chat endpoint.
type LLMBackend struct {
	client chatClient
}

// NewLLMBackend wraps c.
func NewLLMBackend(c *llm.Client) *LLMBackend {
	return &LLMBackend{client: c}
}

func (b *LLMBackend) Ready() bool {
	return b != nil && b.client != nil && b.client.Configured()
}

// Reply answers one learner question.
func (b *LLMBackend) Reply(ctx context.Context, req Request) (string, error) {
	text, _, err := b.client.Chat(ctx, tutorSystemPrompt(req), req.Question)
	if err != nil {
		return "", err
	}
	text = llm.StripThinkBlocks(text)
	if text == "" {
		return "", fmt.Errorf("tutor: empty reply")
	}
	return text, nil
}

// Mission asks for a one-sentence mission for the current lesson.
func (b *LLMBackend) Mission(ctx context.Context, req Request) (string, error) {
	text, _, err := b.client.Chat(ctx, missionSystemPrompt, missionUserPrompt(req))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(llm.StripThinkBlocks(text))
	if text == "" {
		return "", fmt.Errorf("tutor: empty mission")
	}
	return text, nil
}

const missionSystemPrompt = `You write short, fun coding missions for students.
Output ONLY the mission sentence. No quotes, no preamble.`

func missionUserPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a 1-sentence coding mission for a student in the %s stage.\n", req.Stage)
	fmt.Fprintf(&sb, "Lesson: %s. Problem: %s. Task: %s\n", req.Lesson.Title, req.Lesson.Description, req.Lesson.Task)
	switch req.Stage {
	case types.StageKids:
		sb.WriteString("Start with a relevant emoji. It must be solvable with Move, Turn and Repeat blocks.\n")
	case types.StageTween:
		sb.WriteString("Phrase it as a logic puzzle.\n")
	default:
		sb.WriteString("Phrase it as a professional task description.\n")
	}
	return sb.String()
}

func tutorSystemPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a coding tutor. The student is in %s mode.\n", req.Stage)
	if req.Mission != "" {
		fmt.Fprintf(&sb, "Current mission: %q\n", req.Mission)
	}
	l := req.Lesson
	fmt.Fprintf(&sb, "\nCURRENT LESSON:\n- Title: %s\n- Problem: %s\n- Task: %s\n- Solution context: %s\n",
		l.Title, l.Description, l.Task, l.Explanation)
	if g := l.Grid; g != nil {
		fmt.Fprintf(&sb, "\nGAME STATE:\n- Grid size: %dx%d\n- Start: %s facing right\n- Goal: %s\n",
			g.Size, g.Size, g.Start, g.Goal)
		if len(g.Obstacles) > 0 {
			cells := make([]string, len(g.Obstacles))
			for i, o := range g.Obstacles {
				cells[i] = o.String()
			}
			fmt.Fprintf(&sb, "- Obstacles: %s\n", strings.Join(cells, " "))
		}
		fmt.Fprintf(&sb, "- Repeat block moves %d cells\n", l.RepeatCount)
	}
	if len(req.Program) > 0 {
		fmt.Fprintf(&sb, "\nThe student's blocks, in order: %s\n", strings.Join(req.Program, ", "))
	} else {
		sb.WriteString("\nThe student has not placed any blocks yet.\n")
	}
	sb.WriteString(`
RULES:
1. You are strictly a coding tutor. Politely refuse off-topic questions.
2. Never give the full solution; nudge toward the next step.
3. Never generate malicious code.
`)
	switch req.Stage {
	case types.StageKids:
		sb.WriteString("Tone: emojis, simple metaphors, very short and exciting.\n")
	case types.StageTween:
		sb.WriteString(`Tone: encouraging; introduce terms like "event" and "variable".` + "\n")
	case types.StageTeen:
		sb.WriteString("Tone: casual but technical, like a mentor.\n")
	default:
		sb.WriteString("Tone: professional, terse, expert.\n")
	}
	return sb.String()
}
