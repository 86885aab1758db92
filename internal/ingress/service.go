package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
)

const commandParameter = "domain-command="

// Request is one inbound write request with an already authenticated owner.
type Request struct {
	Header http.Header
	Body   []byte
	Owner  workbooks.Owner
}

// Response is the single answer produced for a Request.
type Response struct {
	Status   int
	Command  commands.Name
	ID       string
	Location string
	Err      *pkgerrors.Error
}

// PublishOutcome describes an accepted command.
type PublishOutcome struct {
	ID        string
	Location  string
	MessageID string
}

// Dependencies wires the ingress to its channel.
type Dependencies struct {
	Publisher commands.Publisher
	// Source identifies this process in the Source attribute.
	Source  string
	Logger  *logger.Logger
	Metrics *metrics.CommandMetrics
}

type Service struct {
	publisher commands.Publisher
	source    string
	logg      *logger.Logger
	metrics   *metrics.CommandMetrics
}

// NewService validates deps and builds the command ingress.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Publisher == nil {
		return nil, errors.New("command publisher is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if strings.TrimSpace(deps.Source) == "" {
		return nil, errors.New("origin source is required")
	}
	return &Service{
		publisher: deps.Publisher,
		source:    deps.Source,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
	}, nil
}

// NegotiateCommand reads the domain-command parameter off the Content-Type header.
// The first ;-delimited segment containing the parameter wins.
func NegotiateCommand(header http.Header) (commands.Name, error) {
	var segment string
	found := false
	for _, part := range strings.Split(header.Get("Content-Type"), ";") {
		if strings.Contains(part, commandParameter) {
			segment, found = part, true
			break
		}
	}
	if !found {
		return "", pkgerrors.New(pkgerrors.CodeMissingCommandParameter, "domain-command parameter is required on Content-Type")
	}

	pair := strings.Split(segment, "=")
	if len(pair) != 2 {
		return "", pkgerrors.New(pkgerrors.CodeMalformedCommandParameter, "domain-command parameter must be key=value").
			WithDetails(map[string]any{"parameter": strings.TrimSpace(segment)})
	}

	name, ok := commands.Parse(pair[1])
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnsupportedCommand, fmt.Sprintf("command %q is not supported", pair[1])).
			WithDetails(map[string]any{"command": pair[1]})
	}
	return name, nil
}

type createRequest struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

// BuildEntity creates a default workbook from the body's title and path.
// Any id or owner in the body is ignored.
func BuildEntity(body []byte, owner workbooks.Owner) (workbooks.Workbook, error) {
	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return workbooks.Workbook{}, pkgerrors.Wrap(pkgerrors.CodeMalformedRequestBody, err, "request body could not be decoded").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return workbooks.NewDefault(req.Title, req.Path, owner), nil
}

// Location is the resource path of a workbook.
func Location(id string) string {
	return "/workbook/" + id
}

// Publish sends w over the channel with the four mandatory envelope attributes.
func (s *Service) Publish(ctx context.Context, w workbooks.Workbook, command commands.Name, ownerID, source string) (PublishOutcome, error) {
	payload, err := json.Marshal(w)
	if err != nil {
		return PublishOutcome{}, pkgerrors.Wrap(pkgerrors.CodePublishFailed, err, "encode workbook payload")
	}
	msg := commands.Message{
		Subject: command.String(),
		Data:    payload,
		Attributes: map[string]string{
			commands.AttrVersion:       commands.SchemaVersion,
			commands.AttrSource:        source,
			commands.AttrDomainCommand: command.String(),
			commands.AttrRecordOwner:   ownerID,
		},
	}
	messageID, err := s.publisher.Publish(ctx, msg)
	if err != nil {
		return PublishOutcome{}, pkgerrors.Wrap(pkgerrors.CodePublishFailed, err, "publish workbook command").
			WithDetails(map[string]any{"workbook_id": w.ID})
	}
	return PublishOutcome{ID: w.ID, Location: Location(w.ID), MessageID: messageID}, nil
}

// Run negotiates, builds, validates and publishes. It always returns a response;
// panics below it become a 500.
func (s *Service) Run(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logg.Error(ctx, "command.panic", fmt.Errorf("panic: %v", rec))
			resp = reject(resp.Command, pkgerrors.New(pkgerrors.CodeInternal, "command ingress failed"))
		}
		s.metrics.IncCommand(resp.Command.String(), strconv.Itoa(resp.Status))
	}()

	command, err := NegotiateCommand(req.Header)
	if err != nil {
		return s.rejected(ctx, "", err)
	}
	resp.Command = command
	ctx = s.logg.WithCommand(ctx, command.String())

	w, err := BuildEntity(req.Body, req.Owner)
	if err != nil {
		return s.rejected(ctx, command, err)
	}
	if result := w.Validate(); !result.Valid {
		return s.rejected(ctx, command, pkgerrors.New(pkgerrors.CodeValidation, "workbook failed validation").WithDetails(result.Errors))
	}

	out, err := s.Publish(ctx, w, command, req.Owner.ID, s.source)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "workbook_id", w.ID), "command.publish_failed", err)
		return reject(command, pkgerrors.As(err))
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"workbook_id": out.ID,
		"message_id":  out.MessageID,
	}), "command.accepted")
	return Response{
		Status:   http.StatusAccepted,
		Command:  command,
		ID:       out.ID,
		Location: out.Location,
	}
}

func (s *Service) rejected(ctx context.Context, command commands.Name, err error) Response {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "command ingress failed")
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"code":  string(typed.Code()),
		"error": typed.Error(),
	}), "command.rejected")
	return reject(command, typed)
}

func reject(command commands.Name, err *pkgerrors.Error) Response {
	return Response{
		Status:  pkgerrors.MetadataFor(err.Code()).HTTPStatus,
		Command: command,
		Err:     err,
	}
}
