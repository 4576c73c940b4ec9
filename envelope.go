package apicall

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope is the backend's {success, response, errorMessage} body as a tagged result.
// When OK is true Value holds the decoded response; otherwise ErrorMessage explains why.
type Envelope[T any] struct {
	Value        T      `json:"value,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Status       int    `json:"status"`
	OK           bool   `json:"ok"`
}

type wireEnvelope struct {
	Success      bool            `json:"success"`
	Response     json.RawMessage `json:"response"`
	ErrorMessage string          `json:"errorMessage"`
}

// DecodeEnvelope interprets res as an envelope. It never fails: a body that is not an
// envelope, or a response that does not decode into T, yields OK == false.
func DecodeEnvelope[T any](res *CallResult) Envelope[T] {
	env := Envelope[T]{Status: res.Status}

	var wire wireEnvelope
	if err := json.Unmarshal(res.Body, &wire); err != nil {
		env.ErrorMessage = failureMessage("", res.Status)
		return env
	}

	if !wire.Success {
		env.ErrorMessage = failureMessage(wire.ErrorMessage, res.Status)
		return env
	}

	if len(wire.Response) > 0 && string(wire.Response) != "null" {
		if err := json.Unmarshal(wire.Response, &env.Value); err != nil {
			env.ErrorMessage = fmt.Sprintf("decoding response: %v", err)
			return env
		}
	}

	env.OK = true
	return env
}

// CallEnvelope executes spec on client and decodes the result as an Envelope.
// The error is the client's terminal error; backend failures are reported in the envelope.
func CallEnvelope[T any](ctx context.Context, client *Client, spec RequestSpec) (Envelope[T], error) {
	res, err := client.Execute(ctx, spec)
	if err != nil {
		return Envelope[T]{}, err
	}
	return DecodeEnvelope[T](res), nil
}

func failureMessage(message string, status int) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("request failed with status %d", status)
}
