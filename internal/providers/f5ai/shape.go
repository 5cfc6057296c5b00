package f5ai

import (
	"time"

	"github.com/tidwall/gjson"

	"f5gate/internal/core"
)

const (
	objectChatCompletion = "chat.completion"
	objectChunk          = "chat.completion.chunk"
	objectTextCompletion = "text_completion"

	finishStop = "stop"
	// finishEOS marks the backend's end-of-stream event on the legacy endpoint.
	finishEOS = "eos"
)

// now is replaced in tests.
var now = time.Now

// chunkFromChat repackages a complete chat response as its streaming
// counterpart: message becomes delta, everything else is copied.
func chunkFromChat(resp *core.ChatResponse) core.ChatChunk {
	chunk := core.ChatChunk{
		ID:      resp.ID,
		Object:  objectChunk,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]core.ChunkChoice, 0, len(resp.Choices)),
		Usage:   resp.Usage,
	}
	for _, c := range resp.Choices {
		cc := core.ChunkChoice{
			Index: c.Index,
			Delta: core.Delta{
				Role:      c.Message.Role,
				Content:   c.Message.Content,
				ToolCalls: c.Message.ToolCalls,
			},
			Logprobs: c.Logprobs,
		}
		if c.FinishReason != "" {
			reason := c.FinishReason
			cc.FinishReason = &reason
		}
		chunk.Choices = append(chunk.Choices, cc)
	}
	return chunk
}

// chunkFromFIM builds a chunk from one FIM payload, either a full JSON
// response or a single SSE event. Each choice contributes its delta content,
// text or message content, in that order of preference. defaultFinish is used
// when a choice carries no finish reason; empty leaves it unset.
// ok is false when the payload has no choices.
func chunkFromFIM(payload []byte, model string, defaultFinish string) (chunk core.ChatChunk, ok bool) {
	parsed := gjson.ParseBytes(payload)
	choices := parsed.Get("choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return core.ChatChunk{}, false
	}

	chunk = core.ChatChunk{
		ID:      parsed.Get("id").String(),
		Object:  objectChunk,
		Created: parsed.Get("created").Int(),
		Model:   parsed.Get("model").String(),
	}
	if chunk.Created == 0 {
		chunk.Created = now().Unix()
	}
	if chunk.Model == "" {
		chunk.Model = model
	}

	for i, c := range choices.Array() {
		cc := core.ChunkChoice{
			Index: i,
			Delta: core.Delta{Content: firstString(c, "delta.content", "text", "message.content")},
		}
		reason := c.Get("finish_reason").String()
		if reason == "" {
			reason = defaultFinish
		}
		if reason != "" {
			cc.FinishReason = &reason
		}
		chunk.Choices = append(chunk.Choices, cc)
	}

	if usage := parsed.Get("usage"); usage.IsObject() {
		chunk.Usage = &core.Usage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		}
	}
	return chunk, true
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := r.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}

// legacyFragment extracts the text of one legacy completions payload.
// End-of-stream events are reported as empty.
func legacyFragment(payload []byte) string {
	parsed := gjson.ParseBytes(payload)
	if parsed.Get("finish_reason").String() == finishEOS ||
		parsed.Get("choices.0.finish_reason").String() == finishEOS {
		return ""
	}
	return parsed.Get("choices.0.text").String()
}

// textChunk wraps one fragment of legacy output as an assistant delta.
func textChunk(model string, created int64, text string) core.ChatChunk {
	return core.ChatChunk{
		Object:  objectChunk,
		Created: created,
		Model:   model,
		Choices: []core.ChunkChoice{{
			Delta: core.Delta{Role: core.RoleAssistant, Content: text},
		}},
	}
}

// chatFromText builds a complete assistant response from collected text.
func chatFromText(model string, text string) *core.ChatResponse {
	return &core.ChatResponse{
		Object:   objectChatCompletion,
		Model:    model,
		Provider: providerName,
		Created:  now().Unix(),
		Choices: []core.Choice{{
			Message:      core.Message{Role: core.RoleAssistant, Content: text},
			FinishReason: finishStop,
		}},
	}
}
