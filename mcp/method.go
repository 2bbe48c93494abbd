package mcp

// Method is the closed set of methods the server understands.
type Method int

const (
	MethodUnknown Method = iota
	MethodInitialize
	MethodInitialized
	MethodCancelled
	MethodPing
	MethodResourcesList
	MethodResourceTemplatesList
	MethodResourcesRead
	MethodToolsList
	MethodToolsCall
	MethodPromptsList
	MethodPromptsGet
)

var methodNames = map[Method]string{
	MethodInitialize:            "initialize",
	MethodInitialized:           "notifications/initialized",
	MethodCancelled:             "notifications/cancelled",
	MethodPing:                  "ping",
	MethodResourcesList:         "resources/list",
	MethodResourceTemplatesList: "resources/templates/list",
	MethodResourcesRead:         "resources/read",
	MethodToolsList:             "tools/list",
	MethodToolsCall:             "tools/call",
	MethodPromptsList:           "prompts/list",
	MethodPromptsGet:            "prompts/get",
}

var methodsByName = func() map[string]Method {
	m := make(map[string]Method, len(methodNames))
	for method, name := range methodNames {
		m[name] = method
	}
	return m
}()

// ParseMethod returns the Method named s, MethodUnknown if there is none.
func ParseMethod(s string) Method {
	return methodsByName[s]
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// requiresReady reports whether m is rejected before initialize. Unknown
// methods are rejected too.
func (m Method) requiresReady() bool {
	switch m {
	case MethodInitialize, MethodInitialized, MethodCancelled:
		return false
	}
	return true
}

// Phase is the lifecycle state of a session.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseReady
	PhaseShutdown
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseShutdown:
		return "shutdown"
	default:
		return "uninitialized"
	}
}
