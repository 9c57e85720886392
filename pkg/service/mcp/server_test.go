package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/repository"
	"github.com/m-mizutani/timekeeper/pkg/service/mcp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func setup(t *testing.T) (*mcpsdk.ClientSession, *repository.LocalPlans) {
	t.Helper()
	ctx := context.Background()

	kv, err := adapter.NewFileKeyValue(t.TempDir())
	gt.NoError(t, err)
	local := repository.NewLocal(kv)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	_, err = mcp.NewServer(local, "test").Connect(ctx, serverTransport)
	gt.NoError(t, err)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session, local
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	gt.A(t, result.Content).Length(1)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return text.Text, result.IsError
}

func TestListTools(t *testing.T) {
	session, _ := setup(t)

	tools, err := session.ListTools(context.Background(), nil)
	gt.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	gt.Equal(t, len(names), 4)
	for _, name := range []string{"list_plans", "get_plan", "save_plan", "delete_plan"} {
		gt.True(t, names[name])
	}
}

func TestSaveGetListDelete(t *testing.T) {
	ctx := context.Background()
	session, local := setup(t)

	text, isError := callText(t, session, "save_plan", map[string]any{
		"content": `{"id":"p-1","title":"Standup","totalDurationMinutes":15,"segments":[{"id":"s-1","title":"Yesterday"},{"id":"s-2","title":"Today"}]}`,
	})
	gt.False(t, isError)
	gt.S(t, text).Contains("p-1")

	stored, err := local.Get(ctx, "p-1")
	gt.NoError(t, err)
	gt.Equal(t, stored.Title, "Standup")

	text, isError = callText(t, session, "list_plans", map[string]any{})
	gt.False(t, isError)
	var summaries []map[string]any
	gt.NoError(t, json.Unmarshal([]byte(text), &summaries))
	gt.A(t, summaries).Length(1)
	gt.Equal(t, summaries[0]["segmentDuration"], any("7.50"))

	text, isError = callText(t, session, "get_plan", map[string]any{"id": "p-1"})
	gt.False(t, isError)
	plan, err := model.ParsePlan([]byte(text))
	gt.NoError(t, err)
	gt.Equal(t, plan, stored)

	text, isError = callText(t, session, "delete_plan", map[string]any{"id": "p-1"})
	gt.False(t, isError)
	gt.S(t, text).Contains("deleted")

	plans, err := local.List(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(0)
}

func TestSavePlanRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	session, local := setup(t)

	_, isError := callText(t, session, "save_plan", map[string]any{"content": `{"segments": []}`})
	gt.True(t, isError)

	plans, err := local.List(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(0)
}

func TestGetPlanMissing(t *testing.T) {
	session, _ := setup(t)
	_, isError := callText(t, session, "get_plan", map[string]any{"id": "missing"})
	gt.True(t, isError)
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	kv, err := adapter.NewFileKeyValue(t.TempDir())
	gt.NoError(t, err)

	srv := httptest.NewServer(mcp.NewServer(repository.NewLocal(kv), "test").Handler())
	defer srv.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: srv.URL}, nil)
	gt.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	gt.NoError(t, err)
	gt.A(t, tools.Tools).Length(4)
}

func TestSavePlanRejectsBlankTitle(t *testing.T) {
	ctx := context.Background()
	session, local := setup(t)

	_, isError := callText(t, session, "save_plan", map[string]any{
		"content": `{"id":"p-blank","title":"   ","totalDurationMinutes":30,"segments":[{"id":"s-1","title":"Intro"}]}`,
	})
	gt.True(t, isError)

	plans, err := local.List(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(0)
}

func TestHandlerConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	kv, err := adapter.NewFileKeyValue(t.TempDir())
	gt.NoError(t, err)
	local := repository.NewLocal(kv)

	srv := httptest.NewServer(mcp.NewServer(local, "test").Handler())
	defer srv.Close()

	const clients = 5
	var wg sync.WaitGroup
	results := make(chan bool, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
			session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: srv.URL}, nil)
			if err != nil {
				results <- false
				return
			}
			defer session.Close()

			content := fmt.Sprintf(`{"id":"p-%d","title":"Plan %d","totalDurationMinutes":30,"segments":[{"id":"s-1","title":"Intro"}]}`, i, i)
			result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
				Name:      "save_plan",
				Arguments: map[string]any{"content": content},
			})
			results <- err == nil && !result.IsError
		}(i)
	}
	wg.Wait()
	close(results)

	for ok := range results {
		gt.True(t, ok)
	}

	plans, err := local.List(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(clients)
	for i := 0; i < clients; i++ {
		_, err := local.Get(ctx, model.PlanID(fmt.Sprintf("p-%d", i)))
		gt.NoError(t, err)
	}
}
