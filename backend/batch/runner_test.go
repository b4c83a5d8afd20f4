package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/luxury-yacht/driftcheck/backend/collect"
	"github.com/luxury-yacht/driftcheck/backend/compare"
	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/testsupport"
)

// snapshots is a resolver over fixed snapshots keyed by SourceRef.Label.
type snapshots map[string]*model.Snapshot

func (s snapshots) Resolve(_ context.Context, ref SourceRef) (*model.Snapshot, error) {
	snap, ok := s[ref.Label()]
	if !ok {
		return nil, errors.New("no such source")
	}
	return snap, nil
}

func buildSnapshot(t *testing.T, name string, objs ...runtime.Object) *model.Snapshot {
	return collect.Build(name, "", testsupport.ToUnstructuredList(t, objs...))
}

func cluster(ns string) SourceRef { return SourceRef{Kind: SourceCluster, Namespace: ns} }

func TestRunnerComparesPairsInOrder(t *testing.T) {
	resolver := snapshots{
		"staging": buildSnapshot(t, "staging",
			testsupport.DeploymentFixture("staging", "web", testsupport.DeploymentWithContainers(
				testsupport.ContainerFixture("nginx", "nginx:1"),
				testsupport.ContainerFixture("sidecar", "envoy:1"),
			)),
		),
		"prod": buildSnapshot(t, "prod",
			testsupport.DeploymentFixture("prod", "web", testsupport.DeploymentWithContainers(
				testsupport.ContainerFixture("sidecar", "envoy:1"),
				testsupport.ContainerFixture("nginx", "nginx:1"),
			)),
		),
	}
	runner := NewRunner(RunnerDependencies{
		Resolver:    resolver,
		Ignore:      ignore.NewStore(ignore.New([]string{"metadata.namespace"})),
		Logger:      testsupport.NoopLogger{},
		MaxAttempts: 1,
	})

	result, err := runner.Run(context.Background(), []Pair{
		{Left: cluster("staging"), Right: cluster("prod"), Engine: compare.EngineSemantic},
		{Left: cluster("staging"), Right: cluster("prod"), Engine: compare.EnginePath},
		{Left: cluster("staging"), Right: cluster("missing")},
	})
	require.NoError(t, err)
	require.Len(t, result.Pairs, 3)

	require.False(t, result.Pairs[0].Failed())
	require.Equal(t, 0, result.Pairs[0].Comparison.DifferenceCount())
	require.Equal(t, "staging", result.Pairs[0].Comparison.LeftLabel)

	require.Greater(t, result.Pairs[1].Comparison.DifferenceCount(), 0)
	require.Equal(t, "path", result.Pairs[1].Comparison.Engine)

	require.True(t, result.Pairs[2].Failed())
	require.Contains(t, result.Pairs[2].Error, "right: no such source")

	require.Equal(t, 3, result.Summary.Pairs)
	require.Equal(t, 1, result.Summary.Failed)
	require.Equal(t, 1, result.Summary.PairsWithDifferences)
}

func TestRunnerUsesPairLabels(t *testing.T) {
	snap := buildSnapshot(t, "ns", testsupport.ConfigMapFixture("ns", "cfg", map[string]string{"k": "v"}))
	runner := NewRunner(RunnerDependencies{Resolver: snapshots{"ns": snap}})

	result, err := runner.Run(context.Background(), []Pair{
		{Left: cluster("ns"), Right: cluster("ns"), LeftLabel: "golden", RightLabel: "live"},
		{Left: cluster("ns"), Right: cluster("ns"), Engine: compare.EnginePath, Mode: compare.ModeBaseline},
	})
	require.NoError(t, err)
	require.Equal(t, "golden", result.Pairs[0].Comparison.LeftLabel)
	require.Equal(t, "live", result.Pairs[0].Comparison.RightLabel)
	require.Equal(t, "baseline", result.Pairs[1].Comparison.LeftLabel)
	require.Equal(t, "ns", result.Pairs[1].Comparison.RightLabel)
}

func TestRunnerRetriesResolution(t *testing.T) {
	snap := buildSnapshot(t, "ns", testsupport.ServiceFixture("ns", "web", 80))
	var calls int64
	resolver := ResolverFunc(func(ctx context.Context, ref SourceRef) (*model.Snapshot, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return nil, errors.New("connection refused")
		}
		return snap, nil
	})
	runner := NewRunner(RunnerDependencies{Resolver: resolver, RetryDelay: time.Millisecond, Concurrency: 1})

	result, err := runner.Run(context.Background(), []Pair{{Left: cluster("ns"), Right: cluster("ns")}})
	require.NoError(t, err)
	require.False(t, result.Pairs[0].Failed())
	require.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestRunnerRecordsInvalidPairs(t *testing.T) {
	runner := NewRunner(RunnerDependencies{Resolver: snapshots{}})
	result, err := runner.Run(context.Background(), []Pair{{Left: SourceRef{Kind: "s3"}, Right: cluster("ns")}})
	require.NoError(t, err)
	require.True(t, result.Pairs[0].Failed())
	require.Contains(t, result.Pairs[0].Error, "left:")
}

func TestRunnerRecoversComparatorPanics(t *testing.T) {
	broken := &model.Snapshot{
		Name:       "broken",
		Flat:       model.NewFlatNamespace("broken", ""),
		Structured: model.NewStructuredNamespace("broken", ""),
	}
	resolver := ResolverFunc(func(ctx context.Context, ref SourceRef) (*model.Snapshot, error) {
		if ref.Namespace == "explode" {
			panic("unexpected shape")
		}
		return broken, nil
	})
	runner := NewRunner(RunnerDependencies{Resolver: resolver})

	result, err := runner.Run(context.Background(), []Pair{
		{Left: cluster("ok"), Right: cluster("explode")},
		{Left: cluster("ok"), Right: cluster("ok")},
	})
	require.NoError(t, err)
	require.Contains(t, result.Pairs[0].Error, "unexpected shape")
	require.False(t, result.Pairs[1].Failed())
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(RunnerDependencies{Resolver: snapshots{}})
	_, err := runner.Run(ctx, []Pair{{Left: cluster("a"), Right: cluster("b")}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRequiresResolver(t *testing.T) {
	_, err := NewRunner(RunnerDependencies{}).Run(context.Background(), nil)
	require.Error(t, err)
}

type preparingResolver struct {
	snapshots
	prepared []SourceRef
}

func (p *preparingResolver) Prepare(_ context.Context, refs []SourceRef) error {
	p.prepared = append(p.prepared, refs...)
	return nil
}

func TestRunnerPreparesResolverBeforeComparing(t *testing.T) {
	snap := buildSnapshot(t, "ns", testsupport.ServiceFixture("ns", "web", 80))
	resolver := &preparingResolver{snapshots: snapshots{"a": snap, "b": snap}}
	runner := NewRunner(RunnerDependencies{Resolver: resolver})

	result, err := runner.Run(context.Background(), []Pair{{Left: cluster("a"), Right: cluster("b")}})
	require.NoError(t, err)
	require.False(t, result.Pairs[0].Failed())
	require.Equal(t, []SourceRef{cluster("a"), cluster("b")}, resolver.prepared)
}
