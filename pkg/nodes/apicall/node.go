// Package apicall implements the node that performs an outbound HTTP call.
package apicall

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

type Node struct {
	id     string
	config Config
	caller protocol.HTTPCaller
}

// NewNode creates an api_call node handler.
func NewNode(node *models.Node, caller protocol.HTTPCaller) (*Node, error) {
	cfg := Config{
		Method:  "GET",
		Headers: make(map[string]string),
		Timeout: defaultTimeout,
	}

	url, ok := node.Config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	cfg.URL = url

	if method, ok := node.Config["method"].(string); ok && method != "" {
		cfg.Method = strings.ToUpper(method)
	}

	if headers, ok := node.Config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}

	if body, ok := node.Config["body"].(string); ok {
		cfg.Body = body
	}

	if timeout, ok := node.Config["timeout"].(float64); ok && timeout > 0 {
		cfg.Timeout = time.Duration(timeout * float64(time.Second))
	}

	return &Node{id: node.ID, config: cfg, caller: caller}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeAPICall
}

// Execute substitutes URL, headers and body and performs the call. Any
// response status is a successful node result; only transport errors fail
// the node and enter the retry path.
func (n *Node) Execute(ctx context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	headers := make(map[string]string, len(n.config.Headers))
	for k, v := range n.config.Headers {
		headers[k] = expression.Substitute(v, ec.Variables, ec.Context)
	}

	resp, err := n.caller.Call(ctx, protocol.CallRequest{
		URL:     expression.Substitute(n.config.URL, ec.Variables, ec.Context),
		Method:  n.config.Method,
		Headers: headers,
		Body:    expression.Substitute(n.config.Body, ec.Variables, ec.Context),
		Timeout: n.config.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &protocol.HandlerResult{
		Output: map[string]any{
			"status": resp.StatusCode,
			"body":   resp.Body,
		},
	}, nil
}
