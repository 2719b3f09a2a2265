package client

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
)

const maxBodyInMessage = 200

// statusError maps a non-2xx response onto the error taxonomy. Bodies follow
// the REST framework shapes: {"field": ["msg"]}, {"detail": "msg"} or
// {"error": "msg"}.
func statusError(status int, path string, body []byte) error {
	msg, details := parseErrorBody(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := stderrors.New(msg)

	switch {
	case status == http.StatusBadRequest:
		return &errors.AppError{
			Code:    errors.ErrValidation,
			Status:  status,
			Message: msg,
			Details: details,
		}
	case status == http.StatusUnauthorized:
		return errors.Unauthorized(cause)
	case status == http.StatusForbidden:
		return errors.Forbidden(cause)
	case status == http.StatusNotFound:
		return errors.NotFound(strings.TrimPrefix(path, "/"), cause)
	default:
		return errors.Internal(status, fmt.Errorf("%s %d: %w", path, status, cause))
	}
}

func parseErrorBody(body []byte) (string, map[string][]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			return strings.Join(list, "; "), nil
		}
		if len(trimmed) > maxBodyInMessage {
			trimmed = trimmed[:maxBodyInMessage]
		}
		return trimmed, nil
	}

	var general []string
	details := make(map[string][]string)
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		msgs := rawMessages(doc[k])
		if len(msgs) == 0 {
			continue
		}
		switch k {
		case "detail", "error", "message", "non_field_errors":
			general = append(general, msgs...)
		default:
			details[k] = msgs
		}
	}

	msg := strings.Join(general, "; ")
	if msg == "" && len(details) > 0 {
		msg = "request rejected"
	}
	if len(details) == 0 {
		details = nil
	}
	return msg, details
}

func rawMessages(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return []string{s}
	}
	var list []interface{}
	if json.Unmarshal(raw, &list) == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return []string{string(raw)}
}
