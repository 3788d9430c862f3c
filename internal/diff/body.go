package diff

import (
	"bytes"
	"fmt"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
)

// Payload is an encoded body together with the content type it arrived with.
type Payload struct {
	ContentType string
	Data        []byte
}

// CompareBody decodes actual by its content type and diffs expected against it
// as the same kind of body. Identical bytes always match without decoding. The
// returned kind is the interpretation used for actual; errors are codec errors for either side.
func CompareBody(expected, actual Payload, maxDepth int, checkAdditionalKeys bool) (codec.Kind, []Record, error) {
	if bytes.Equal(expected.Data, actual.Data) {
		return codec.KindRaw, nil, nil
	}
	got, err := codec.Decode(actual.Data, actual.ContentType)
	if err != nil {
		return codec.KindRaw, nil, fmt.Errorf("actual body: %w", err)
	}

	switch got.Kind {
	case codec.KindText:
		want, err := codec.Decode(expected.Data, "text/plain")
		if err != nil {
			return got.Kind, nil, fmt.Errorf("expected body: %w", err)
		}
		return got.Kind, CompareText(want.Text, got.Text), nil

	case codec.KindJSON:
		want, err := codec.Decode(expected.Data, codec.ContentTypeJSON)
		if err != nil {
			return got.Kind, nil, fmt.Errorf("expected body: %w", err)
		}
		return got.Kind, CompareJSON(want.Tree, got.Tree, maxDepth, checkAdditionalKeys), nil

	case codec.KindForm:
		want, err := codec.Decode(expected.Data, expected.ContentType)
		if err != nil {
			return got.Kind, nil, fmt.Errorf("expected body: %w", err)
		}
		if want.Kind != codec.KindForm {
			return got.Kind, []Record{{
				Kind:     TypeMismatch,
				Message:  fmt.Sprintf("Expected a %s body but found a form body", want.Kind),
				Expected: want.Kind.String(),
				Actual:   got.Kind.String(),
			}}, nil
		}
		return got.Kind, CompareForm(want.Fields, got.Fields, maxDepth, checkAdditionalKeys), nil
	}

	return got.Kind, CompareRaw(expected.Data, actual.Data), nil
}
