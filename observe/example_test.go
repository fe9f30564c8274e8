package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/modelops/observe"
)

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "registry loaded",
		observe.F("source", "network"),
		observe.F("api_key", "sk-this-never-appears"),
	)

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	fmt.Println("source:", entry["source"])
	fmt.Println("api_key:", entry["api_key"])
	// Output:
	// source: network
	// api_key: [REDACTED]
}

func ExampleCallMeta() {
	meta := observe.CallMeta{Provider: "openai", Model: "gpt-4o"}
	fmt.Println(meta.Resource())
	fmt.Println(meta.SpanName())
	// Output:
	// ai:openai:gpt-4o
	// model.call.openai.gpt-4o
}

func ExampleNewMiddleware() {
	m := observe.NewMiddleware(nil, nil, nil)

	call := m.Wrap(func(ctx context.Context, meta observe.CallMeta) error {
		// The actual provider call goes here.
		return nil
	})

	err := call(context.Background(), observe.CallMeta{Provider: "openai", Model: "gpt-4o"})
	fmt.Println("err:", err)
	// Output:
	// err: <nil>
}
