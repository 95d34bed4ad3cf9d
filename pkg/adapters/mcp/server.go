// Package mcp exposes the orchestrator as Model Context Protocol tools, so agents can
// author definitions and drive instances.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const definitionsURI = "stateflow://definitions"

// Service defines the orchestrator operations the MCP server needs.
type Service interface {
	CreateDefinition(ctx context.Context, req service.CreateDefinitionRequest) (*domain.Definition, error)
	GetDefinition(ctx context.Context, id string) (*domain.Definition, error)
	ListDefinitions(ctx context.Context) ([]*domain.Definition, error)
	StartInstance(ctx context.Context, definitionID string) (*domain.Instance, error)
	GetInstance(ctx context.Context, id string) (*domain.Instance, error)
	ListInstances(ctx context.Context) ([]*domain.Instance, error)
	ListInstancesByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error)
	ExecuteAction(ctx context.Context, instanceID, actionName string) (*domain.Instance, error)
	ValidateActionExecution(ctx context.Context, instanceID, actionID string) (domain.ValidationResult, error)
	ValidateDefinition(def *domain.Definition) domain.ValidationResult
}

// Server wraps the orchestrator and exposes it as an MCP Server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for tool failures and the SSE listener.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("stateflow-mcp", strings.TrimSpace(stateflow.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// DefinitionArgs carries a definition document in YAML or JSON.
type DefinitionArgs struct {
	Definition string `json:"definition"`
	Format     string `json:"format,omitempty"`
}

// IDArgs selects a definition or an instance.
type IDArgs struct {
	ID string `json:"id"`
}

// StartArgs selects the definition to instantiate.
type StartArgs struct {
	DefinitionID string `json:"definition_id"`
}

// ActionArgs selects an action on an instance.
type ActionArgs struct {
	InstanceID string `json:"instance_id"`
	Action     string `json:"action"`
}

// ListInstancesArgs optionally restricts the listing to one definition.
type ListInstancesArgs struct {
	DefinitionID string `json:"definition_id,omitempty"`
}

// DefinitionList wraps the definition listing; structured results must be objects.
type DefinitionList struct {
	Definitions []*domain.Definition `json:"definitions"`
}

// InstanceList wraps the instance listing.
type InstanceList struct {
	Instances []*domain.Instance `json:"instances"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_definition",
		mcp.WithDescription("Check a workflow definition document (YAML or JSON) without storing it. Reports every problem at once."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("The definition document")),
		mcp.WithString("format", mcp.Description("yaml (default, also accepts JSON) or json"), mcp.Enum("yaml", "json")),
		mcp.WithOutputSchema[domain.ValidationResult](),
	), mcp.NewStructuredToolHandler(s.handleValidateDefinition))

	s.mcpServer.AddTool(mcp.NewTool("create_definition",
		mcp.WithDescription("Validate and store a workflow definition document. Names are unique ignoring case."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("The definition document")),
		mcp.WithString("format", mcp.Description("yaml (default, also accepts JSON) or json"), mcp.Enum("yaml", "json")),
		mcp.WithOutputSchema[domain.Definition](),
	), mcp.NewStructuredToolHandler(s.handleCreateDefinition))

	s.mcpServer.AddTool(mcp.NewTool("list_definitions",
		mcp.WithDescription("List stored workflow definitions, oldest first."),
		mcp.WithOutputSchema[DefinitionList](),
	), mcp.NewStructuredToolHandler(s.handleListDefinitions))

	s.mcpServer.AddTool(mcp.NewTool("get_definition",
		mcp.WithDescription("Get a workflow definition by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Definition ID")),
		mcp.WithOutputSchema[domain.Definition](),
	), mcp.NewStructuredToolHandler(s.handleGetDefinition))

	s.mcpServer.AddTool(mcp.NewTool("start_instance",
		mcp.WithDescription("Start a new instance of a definition at its initial state."),
		mcp.WithString("definition_id", mcp.Required(), mcp.Description("Definition ID")),
		mcp.WithOutputSchema[domain.Instance](),
	), mcp.NewStructuredToolHandler(s.handleStartInstance))

	s.mcpServer.AddTool(mcp.NewTool("execute_action",
		mcp.WithDescription("Execute an action on an instance. The action is matched by name, ignoring case, or by ID."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance ID")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action name or ID")),
		mcp.WithOutputSchema[domain.Instance](),
	), mcp.NewStructuredToolHandler(s.handleExecuteAction))

	s.mcpServer.AddTool(mcp.NewTool("validate_action",
		mcp.WithDescription("List every reason an action (by ID) cannot run on an instance right now."),
		mcp.WithString("instance_id", mcp.Required(), mcp.Description("Instance ID")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action ID")),
		mcp.WithOutputSchema[domain.ValidationResult](),
	), mcp.NewStructuredToolHandler(s.handleValidateAction))

	s.mcpServer.AddTool(mcp.NewTool("get_instance",
		mcp.WithDescription("Get an instance with its full history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance ID")),
		mcp.WithOutputSchema[domain.Instance](),
	), mcp.NewStructuredToolHandler(s.handleGetInstance))

	s.mcpServer.AddTool(mcp.NewTool("list_instances",
		mcp.WithDescription("List instances, optionally only those of one definition."),
		mcp.WithString("definition_id", mcp.Description("Definition ID filter")),
		mcp.WithOutputSchema[InstanceList](),
	), mcp.NewStructuredToolHandler(s.handleListInstances))

	s.mcpServer.AddTool(mcp.NewTool("definition_graph",
		mcp.WithDescription("Render a definition as a Mermaid flowchart, optionally highlighting an instance's path."),
		mcp.WithString("definition_id", mcp.Required(), mcp.Description("Definition ID")),
		mcp.WithString("instance_id", mcp.Description("Instance to highlight")),
	), s.handleDefinitionGraph)
}

func parseDocument(args DefinitionArgs) (*domain.Definition, error) {
	format := definition.FormatYAML
	if strings.EqualFold(args.Format, string(definition.FormatJSON)) {
		format = definition.FormatJSON
	}
	return definition.Parse([]byte(args.Definition), format)
}

func (s *Server) handleValidateDefinition(ctx context.Context, _ mcp.CallToolRequest, args DefinitionArgs) (domain.ValidationResult, error) {
	def, err := parseDocument(args)
	if err != nil {
		var schemaErr *definition.SchemaError
		if errors.As(err, &schemaErr) {
			return domain.ValidationResult{IsValid: false, Errors: schemaErr.Messages()}, nil
		}
		return domain.ValidationResult{}, err
	}
	return s.svc.ValidateDefinition(def), nil
}

func (s *Server) handleCreateDefinition(ctx context.Context, _ mcp.CallToolRequest, args DefinitionArgs) (*domain.Definition, error) {
	def, err := parseDocument(args)
	if err != nil {
		return nil, err
	}
	created, err := s.svc.CreateDefinition(ctx, service.CreateDefinitionRequest{
		Name:        def.Name,
		Description: def.Description,
		States:      def.States,
		Actions:     def.Actions,
	})
	if err != nil {
		return nil, toolError(err)
	}
	return created, nil
}

func (s *Server) handleListDefinitions(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (DefinitionList, error) {
	defs, err := s.svc.ListDefinitions(ctx)
	if err != nil {
		return DefinitionList{}, err
	}
	return DefinitionList{Definitions: defs}, nil
}

func (s *Server) handleGetDefinition(ctx context.Context, _ mcp.CallToolRequest, args IDArgs) (*domain.Definition, error) {
	return s.svc.GetDefinition(ctx, args.ID)
}

func (s *Server) handleStartInstance(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (*domain.Instance, error) {
	return s.svc.StartInstance(ctx, args.DefinitionID)
}

func (s *Server) handleExecuteAction(ctx context.Context, _ mcp.CallToolRequest, args ActionArgs) (*domain.Instance, error) {
	inst, err := s.svc.ExecuteAction(ctx, args.InstanceID, args.Action)
	if err != nil {
		if !domain.IsClientError(err) {
			s.logger.Error("MCP execute_action failed", "instance_id", args.InstanceID, "err", err)
		}
		return nil, err
	}
	return inst, nil
}

func (s *Server) handleValidateAction(ctx context.Context, _ mcp.CallToolRequest, args ActionArgs) (domain.ValidationResult, error) {
	return s.svc.ValidateActionExecution(ctx, args.InstanceID, args.Action)
}

func (s *Server) handleGetInstance(ctx context.Context, _ mcp.CallToolRequest, args IDArgs) (*domain.Instance, error) {
	return s.svc.GetInstance(ctx, args.ID)
}

func (s *Server) handleListInstances(ctx context.Context, _ mcp.CallToolRequest, args ListInstancesArgs) (InstanceList, error) {
	var (
		insts []*domain.Instance
		err   error
	)
	if args.DefinitionID != "" {
		insts, err = s.svc.ListInstancesByDefinition(ctx, args.DefinitionID)
	} else {
		insts, err = s.svc.ListInstances(ctx)
	}
	if err != nil {
		return InstanceList{}, err
	}
	return InstanceList{Instances: insts}, nil
}

func (s *Server) handleDefinitionGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defID, err := request.RequireString("definition_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	def, err := s.svc.GetDefinition(ctx, defID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var overlay *graph.GraphOverlay
	if instanceID := request.GetString("instance_id", ""); instanceID != "" {
		inst, err := s.svc.GetInstance(ctx, instanceID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if inst.DefinitionID != def.ID {
			return mcp.NewToolResultError(fmt.Sprintf("instance '%s' does not belong to definition '%s'", inst.ID, def.ID)), nil
		}
		overlay = graph.OverlayFor(inst)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(def, overlay)), nil
}

// toolError flattens a validation failure into one message listing every problem.
func toolError(err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("%w: %s", err, strings.Join(ve.Result.Errors, "; "))
	}
	return err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(definitionsURI, "Workflow Definitions",
		mcp.WithResourceDescription("Every stored workflow definition"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		defs, err := s.svc.ListDefinitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}
		jsonBytes, err := json.Marshal(defs)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      definitionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
