package functions

import (
	"log"

	"google.golang.org/genai"
)

// Handler executes one function call and returns its response payload
type Handler func(args map[string]any) map[string]any

// Registry holds the tools exposed to the live model for one call
type Registry struct {
	decls    []*genai.FunctionDeclaration
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a declaration and its handler
func (r *Registry) Register(decl *genai.FunctionDeclaration, h Handler) {
	r.decls = append(r.decls, decl)
	r.handlers[decl.Name] = h
}

// Tools returns the declarations as a live session tool list
func (r *Registry) Tools() []*genai.Tool {
	if len(r.decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: r.decls}}
}

// Call dispatches a function call from the model
func (r *Registry) Call(fc *genai.FunctionCall) *genai.FunctionResponse {
	resp := &genai.FunctionResponse{ID: fc.ID, Name: fc.Name}

	h, ok := r.handlers[fc.Name]
	if !ok {
		log.Printf("⚠️ Unknown function called: %s", fc.Name)
		resp.Response = map[string]any{"error": "unknown function: " + fc.Name}
		return resp
	}

	resp.Response = h(fc.Args)
	return resp
}

// ForCall builds the registry for one feedback call. vars are the call-start
// variable values; onEnd is invoked when the model decides the interview is
// over.
func ForCall(vars map[string]string, onEnd func()) *Registry {
	r := NewRegistry()
	r.Register(GetOrderDetailsFunctionDeclaration(), func(map[string]any) map[string]any {
		return OrderDetails(vars)
	})
	r.Register(EndCallFunctionDeclaration(), func(map[string]any) map[string]any {
		if onEnd != nil {
			onEnd()
		}
		return map[string]any{"result": "ok"}
	})
	return r
}
