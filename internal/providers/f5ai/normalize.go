package f5ai

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"f5gate/internal/core"
)

// tokenLimit is a token budget whose wire type depends on the profile.
type tokenLimit struct {
	n        int
	asString bool
}

func (t tokenLimit) MarshalJSON() ([]byte, error) {
	if t.asString {
		return json.Marshal(strconv.Itoa(t.n))
	}
	return json.Marshal(t.n)
}

// chatBody is the normalized chat/completions request body.
type chatBody struct {
	Model               string           `json:"model"`
	Messages            []core.Message   `json:"messages"`
	Temperature         *float64         `json:"temperature,omitempty"`
	TopP                *float64         `json:"top_p,omitempty"`
	PresencePenalty     *float64         `json:"presence_penalty,omitempty"`
	FrequencyPenalty    *float64         `json:"frequency_penalty,omitempty"`
	Stop                []string         `json:"stop,omitempty"`
	MaxTokens           *tokenLimit      `json:"max_tokens,omitempty"`
	MaxCompletionTokens *tokenLimit      `json:"max_completion_tokens,omitempty"`
	Tools               []core.Tool      `json:"tools,omitempty"`
	ToolChoice          any              `json:"tool_choice,omitempty"`
	ParallelToolCalls   *bool            `json:"parallel_tool_calls,omitempty"`
	Prediction          *core.Prediction `json:"prediction,omitempty"`
	Stream              bool             `json:"stream"`
}

// completionBody is the request body of the legacy completions endpoint.
type completionBody struct {
	Model            string      `json:"model"`
	Prompt           string      `json:"prompt"`
	Suffix           string      `json:"suffix,omitempty"`
	Temperature      *float64    `json:"temperature,omitempty"`
	TopP             *float64    `json:"top_p,omitempty"`
	PresencePenalty  *float64    `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64    `json:"frequency_penalty,omitempty"`
	Stop             []string    `json:"stop,omitempty"`
	MaxTokens        *tokenLimit `json:"max_tokens,omitempty"`
	Stream           bool        `json:"stream"`
}

// fimBody is the minimal fim/completions request body.
type fimBody struct {
	Model            string      `json:"model"`
	Prompt           string      `json:"prompt"`
	Suffix           string      `json:"suffix"`
	MaxTokens        *tokenLimit `json:"max_tokens,omitempty"`
	Temperature      *float64    `json:"temperature,omitempty"`
	TopP             *float64    `json:"top_p,omitempty"`
	FrequencyPenalty *float64    `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64    `json:"presence_penalty,omitempty"`
	Stop             []string    `json:"stop,omitempty"`
	Stream           bool        `json:"stream"`
}

// familyRule rewrites body in place for one model family.
type familyRule func(n *normalizer, body *chatBody)

var familyRules = map[Family]familyRule{
	FamilyOSeries: normalizeOSeries,
	FamilyGPT:     normalizeGPT,
}

// normalizer turns generic requests into the bodies the backend accepts.
// It never fails: rules that do not apply are skipped.
type normalizer struct {
	profile  Profile
	ceiling  int
	official bool
	preamble string
}

func (n *normalizer) limit(v *int) *tokenLimit {
	if v == nil {
		return nil
	}
	return &tokenLimit{n: *v, asString: n.profile.StringTokenLimits}
}

func (n *normalizer) truncateStop(stop []string) []string {
	if n.ceiling < 0 || len(stop) <= n.ceiling {
		return stop
	}
	return stop[:n.ceiling]
}

// chat builds the chat/completions body for req. req is not modified.
func (n *normalizer) chat(req *core.ChatRequest) *chatBody {
	body := &chatBody{
		Model:            req.Model,
		Messages:         append([]core.Message(nil), req.Messages...),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stop:             n.truncateStop(req.Stop),
		MaxTokens:        n.limit(req.MaxTokens),
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
	}

	family := Classify(req.Model)
	if !n.profile.OfficialEndpointOnly || n.official {
		if rule, ok := familyRules[family]; ok {
			rule(n, body)
		}
		if len(body.Tools) > 0 && !(n.profile.ReasoningToolsExempt && isReasoningModel(req.Model)) {
			off := false
			body.ParallelToolCalls = &off
		}
	}

	if req.Prediction != nil && supportsPrediction(req.Model) {
		if isNonZero(body.PresencePenalty) {
			body.PresencePenalty = nil
		}
		if isNonZero(body.FrequencyPenalty) {
			body.FrequencyPenalty = nil
		}
		body.MaxCompletionTokens = nil
		body.Prediction = req.Prediction
	}

	body.Stream = false

	slog.Debug("normalized chat request",
		"model", req.Model,
		"family", family.String(),
		"profile", n.profile.Name,
		"stop", len(body.Stop),
		"prediction", body.Prediction != nil,
	)
	return body
}

func normalizeOSeries(n *normalizer, body *chatBody) {
	body.MaxCompletionTokens = body.MaxTokens
	body.MaxTokens = nil
	rewriteSystemRole(body.Messages, n.profile.OSeriesSystemRole)
	if n.preamble != "" {
		for i := range body.Messages {
			if body.Messages[i].Role == core.RoleUser {
				body.Messages[i].Content = n.preamble + body.Messages[i].Content
				break
			}
		}
	}
}

func normalizeGPT(n *normalizer, body *chatBody) {
	body.MaxCompletionTokens = nil
	if n.profile.RewriteGPTSystem {
		rewriteSystemRole(body.Messages, core.RoleUser)
	}
}

// rewriteSystemRole changes the role of system messages in place. Content
// is left untouched.
func rewriteSystemRole(msgs []core.Message, role string) {
	for i := range msgs {
		if msgs[i].Role == core.RoleSystem {
			msgs[i].Role = role
		}
	}
}

func isNonZero(v *float64) bool {
	return v != nil && *v != 0
}

// legacyCompletion builds the completions body from a chat request routed to
// the legacy endpoint. The prompt is the last message's content.
func (n *normalizer) legacyCompletion(req *core.ChatRequest) *completionBody {
	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	return &completionBody{
		Model:            req.Model,
		Prompt:           prompt,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stop:             n.truncateStop(req.Stop),
		MaxTokens:        n.limit(req.MaxTokens),
	}
}

func (n *normalizer) completion(req *core.CompletionRequest) *completionBody {
	return &completionBody{
		Model:            req.Model,
		Prompt:           req.Prompt,
		Suffix:           req.Suffix,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stop:             n.truncateStop(req.Stop),
		MaxTokens:        n.limit(req.MaxTokens),
	}
}

func (n *normalizer) fim(req *core.FIMRequest) *fimBody {
	return &fimBody{
		Model:            req.Model,
		Prompt:           req.Prompt,
		Suffix:           req.Suffix,
		MaxTokens:        n.limit(req.MaxTokens),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             n.truncateStop(req.Stop),
	}
}
