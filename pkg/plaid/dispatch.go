package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/plaidbridge/pkg/metrics"
)

const (
	// maxResponseBytes bounds how much of a response body is buffered.
	maxResponseBytes = 32 << 20
	userAgent        = "plaidbridge-go"

	phaseRequest  = "request"
	phaseResponse = "response"
	phaseAPIError = "api_error"
	phaseError    = "error"
)

var errEmptyBody = errors.New("response body is empty")

// responseShape enforces the validate tags on response types, so a 200 body
// missing fields Plaid always sends is a decode error rather than a zero value.
var responseShape = newResponseShape()

func newResponseShape() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type tracer interface {
	TraceID() string
}

// Send POSTs req as JSON to endpoint and decodes a 200 body into Resp. Any
// other status is decoded as an ErrorEnvelope and returned as an *APIError
// wrapped in a typed error. Transport and decode failures are reported with
// pkgerrors.CodeTransport and pkgerrors.CodeDecode.
func Send[Req any, Resp any](ctx context.Context, c *Client, endpoint string, req Req) (*Resp, error) {
	if c == nil {
		return nil, errClientRequired
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode %s request", endpoint))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(endpoint), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", endpoint))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	c.log(ctx, phaseRequest, endpoint, nil, nil)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeTransport, err, fmt.Sprintf("execute %s request", endpoint), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeTransport, err, fmt.Sprintf("read %s response", endpoint), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope ErrorEnvelope
		if err := decodeBody(body, &envelope); err != nil {
			return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeDecode, err, fmt.Sprintf("decode %s error response", endpoint), resp.StatusCode)
		}
		apiErr, err := envelope.apiError(resp.StatusCode)
		if err != nil {
			return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeDecode, err, fmt.Sprintf("decode %s error response", endpoint), resp.StatusCode)
		}

		c.metrics.ObserveRequest(endpoint, metrics.OutcomeAPIError, time.Since(start))
		c.metrics.IncAPIError(endpoint, apiErr.ErrorCode)
		c.log(ctx, phaseAPIError, endpoint, map[string]any{
			"status":           apiErr.StatusCode,
			"plaid_request_id": apiErr.RequestID,
			"error_type":       apiErr.ErrorType,
			"error_code":       apiErr.ErrorCode,
			"duration_ms":      time.Since(start).Milliseconds(),
		}, nil)
		return nil, pkgerrors.Wrap(domainCodeForStatus(resp.StatusCode), apiErr, fmt.Sprintf("plaid %s failed", endpoint))
	}

	var out Resp
	if err := decodeBody(body, &out); err != nil {
		return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeDecode, err, fmt.Sprintf("decode %s response", endpoint), resp.StatusCode)
	}
	if err := checkShape(&out); err != nil {
		return nil, c.fail(ctx, endpoint, start, pkgerrors.CodeDecode, err, fmt.Sprintf("decode %s response", endpoint), resp.StatusCode)
	}

	fields := map[string]any{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if traced, ok := any(&out).(tracer); ok {
		fields["plaid_request_id"] = traced.TraceID()
	}
	c.metrics.ObserveRequest(endpoint, metrics.OutcomeSuccess, time.Since(start))
	c.log(ctx, phaseResponse, endpoint, fields, nil)
	return &out, nil
}

func (c *Client) fail(ctx context.Context, endpoint string, start time.Time, code pkgerrors.Code, err error, msg string, status int) error {
	outcome := metrics.OutcomeTransportError
	if code == pkgerrors.CodeDecode {
		outcome = metrics.OutcomeDecodeError
	}
	c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))
	fields := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	if status != 0 {
		fields["status"] = status
	}
	c.log(ctx, phaseError, endpoint, fields, err)

	typed := pkgerrors.Wrap(code, err, msg)
	if status != 0 {
		typed = typed.WithDetails(map[string]any{"status": status})
	}
	return typed
}

func decodeBody(body []byte, dest any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errEmptyBody
	}
	return json.Unmarshal(trimmed, dest)
}

func checkShape(dest any) error {
	err := responseShape.Struct(dest)
	var notStruct *validator.InvalidValidationError
	if errors.As(err, &notStruct) {
		return nil
	}
	var missing validator.ValidationErrors
	if errors.As(err, &missing) {
		fields := make([]string, 0, len(missing))
		for _, fe := range missing {
			fields = append(fields, fe.Namespace())
		}
		return fmt.Errorf("response is missing required fields %v", fields)
	}
	return err
}
