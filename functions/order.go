package functions

import "google.golang.org/genai"

const (
	OrderDetailsName = "GetOrderDetails"
	EndCallName      = "EndCall"
)

// GetOrderDetailsFunctionDeclaration returns the function declaration for Gemini
func GetOrderDetailsFunctionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        OrderDetailsName,
		Description: "Get the restaurant name, the ordered food and drinks, and the cuisine categories of the order being discussed",
	}
}

// EndCallFunctionDeclaration lets the model hang up once the interview is done
func EndCallFunctionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        EndCallName,
		Description: "End the call after you have thanked the customer and said goodbye",
	}
}

// OrderDetails answers GetOrderDetails from the call-start variables
func OrderDetails(vars map[string]string) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
