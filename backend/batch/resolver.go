package batch

import (
	"context"
	"fmt"
	"sync"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/cli"
	"k8s.io/client-go/dynamic"

	"github.com/luxury-yacht/driftcheck/backend/collect"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/internal/parallel"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const resolverLogSource = "SourceResolver"

// Resolver turns a source reference into a namespace snapshot.
type Resolver interface {
	Resolve(ctx context.Context, ref SourceRef) (*model.Snapshot, error)
}

// Preparer is implemented by resolvers that set up shared state before a batch runs.
type Preparer interface {
	Prepare(ctx context.Context, refs []SourceRef) error
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ref SourceRef) (*model.Snapshot, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref SourceRef) (*model.Snapshot, error) {
	return f(ctx, ref)
}

// ResolverDependencies wires a SourceResolver.
type ResolverDependencies struct {
	Kubeconfig string
	Logger     logging.Interface
	// NewDynamicClient defaults to collect.NewDynamicClient.
	NewDynamicClient func(kubeconfig, context string) (dynamic.Interface, string, error)
	// HelmActionConfigFactory is passed through to every HelmCollector.
	HelmActionConfigFactory func(settings *cli.EnvSettings, namespace string) (*action.Configuration, error)
}

// SourceResolver resolves every SourceKind with the collectors. Cluster collectors
// are kept per context so concurrent pairs reading the same namespace share requests.
type SourceResolver struct {
	deps ResolverDependencies

	mu       sync.Mutex
	clusters map[string]*collect.ClusterCollector
}

func NewSourceResolver(deps ResolverDependencies) *SourceResolver {
	if deps.NewDynamicClient == nil {
		deps.NewDynamicClient = collect.NewDynamicClient
	}
	deps.Logger = logging.OrNoop(deps.Logger)
	return &SourceResolver{deps: deps, clusters: map[string]*collect.ClusterCollector{}}
}

func (r *SourceResolver) Resolve(ctx context.Context, ref SourceRef) (*model.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	switch ref.Kind {
	case SourceManifest:
		objs, err := collect.LoadManifests(ref.Path, ref.Namespace)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		return collect.Build(ref.Label(), "", collect.FilterNamespace(objs, ref.Namespace)), nil
	case SourceCluster:
		collector, err := r.cluster(ref.Context)
		if err != nil {
			return nil, err
		}
		return collector.Snapshot(ctx, ref.Namespace)
	case SourceHelm:
		helm := collect.NewHelmCollector(collect.HelmDependencies{
			Kubeconfig:          r.deps.Kubeconfig,
			Context:             ref.Context,
			Logger:              r.deps.Logger,
			ActionConfigFactory: r.deps.HelmActionConfigFactory,
		})
		return helm.Snapshot(ref.Namespace, ref.Release)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, ref.Kind)
}

// Prepare builds the cluster collector of every kube context named by refs, in parallel.
// A context that cannot be reached is logged and left for Resolve to report per pair.
func (r *SourceResolver) Prepare(ctx context.Context, refs []SourceRef) error {
	seen := make(map[string]bool)
	var contexts []string
	for _, ref := range refs {
		if ref.Kind != SourceCluster || seen[ref.Context] {
			continue
		}
		seen[ref.Context] = true
		contexts = append(contexts, ref.Context)
	}
	return parallel.ForEach(ctx, contexts, config.CollectionConcurrency, func(ctx context.Context, kubeContext string) error {
		if _, err := r.cluster(kubeContext); err != nil {
			r.deps.Logger.Warn(fmt.Sprintf("Cluster context %q unavailable: %v", kubeContext, err), resolverLogSource)
		}
		return ctx.Err()
	})
}

// cluster returns the collector for kubeContext. Clients are built outside the lock;
// when two callers race, the first stored collector wins.
func (r *SourceResolver) cluster(kubeContext string) (*collect.ClusterCollector, error) {
	r.mu.Lock()
	collector, ok := r.clusters[kubeContext]
	r.mu.Unlock()
	if ok {
		return collector, nil
	}

	client, name, err := r.deps.NewDynamicClient(r.deps.Kubeconfig, kubeContext)
	if err != nil {
		return nil, err
	}
	collector = collect.NewClusterCollector(collect.ClusterDependencies{
		Client:      client,
		ClusterName: name,
		Logger:      r.deps.Logger,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[kubeContext]; ok {
		return existing, nil
	}
	r.clusters[kubeContext] = collector
	return collector, nil
}
