/*
 * backend/collect/cluster.go
 *
 * Live cluster collection through the dynamic client.
 * - Lists a fixed set of namespaced resource kinds in parallel.
 * - Unreadable or unserved kinds are skipped, not fatal.
 * - Concurrent collections of the same namespace share one round of requests.
 */

package collect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/internal/parallel"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const clusterLogSource = "ClusterCollector"

// DefaultResources are the namespaced kinds compared when no explicit list is configured.
var DefaultResources = []schema.GroupVersionResource{
	{Group: "apps", Version: "v1", Resource: "deployments"},
	{Group: "apps", Version: "v1", Resource: "statefulsets"},
	{Group: "apps", Version: "v1", Resource: "daemonsets"},
	{Group: "batch", Version: "v1", Resource: "cronjobs"},
	{Group: "", Version: "v1", Resource: "services"},
	{Group: "", Version: "v1", Resource: "configmaps"},
	{Group: "", Version: "v1", Resource: "secrets"},
	{Group: "", Version: "v1", Resource: "serviceaccounts"},
	{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
	{Group: "networking.k8s.io", Version: "v1", Resource: "networkpolicies"},
	{Group: "autoscaling", Version: "v2", Resource: "horizontalpodautoscalers"},
	{Group: "policy", Version: "v1", Resource: "poddisruptionbudgets"},
	gatewayv1.SchemeGroupVersion.WithResource("httproutes"),
	gatewayv1.SchemeGroupVersion.WithResource("grpcroutes"),
}

// ClusterDependencies wires a ClusterCollector.
type ClusterDependencies struct {
	Client      dynamic.Interface
	ClusterName string
	// Resources defaults to DefaultResources.
	Resources []schema.GroupVersionResource
	Logger    logging.Interface
	// Concurrency defaults to config.CollectionConcurrency.
	Concurrency int
	// Timeout defaults to config.CollectionTimeout.
	Timeout time.Duration
}

// ClusterCollector reads namespaces from a live cluster.
type ClusterCollector struct {
	deps  ClusterDependencies
	group singleflight.Group
}

// NewClusterCollector applies defaults to deps.
func NewClusterCollector(deps ClusterDependencies) *ClusterCollector {
	if len(deps.Resources) == 0 {
		deps.Resources = DefaultResources
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = config.CollectionConcurrency
	}
	if deps.Timeout <= 0 {
		deps.Timeout = config.CollectionTimeout
	}
	deps.Logger = logging.OrNoop(deps.Logger)
	return &ClusterCollector{deps: deps}
}

// ClusterName returns the label used for snapshots from this collector.
func (c *ClusterCollector) ClusterName() string {
	return c.deps.ClusterName
}

// Collect lists every configured kind in namespace, sorted by object key. Callers
// that arrive while a collection for the same namespace is running share its result.
func (c *ClusterCollector) Collect(ctx context.Context, namespace string) ([]*unstructured.Unstructured, error) {
	if c.deps.Client == nil {
		return nil, fmt.Errorf("cluster %q has no client", c.deps.ClusterName)
	}
	// The shared flight outlives any single caller; collect bounds it with its own timeout.
	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(namespace, func() (interface{}, error) {
		return c.collect(flight, namespace)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			klog.V(2).Infof("collect: shared in-flight collection for %s/%s", c.deps.ClusterName, namespace)
		}
		return res.Val.([]*unstructured.Unstructured), nil
	}
}

// Snapshot collects namespace and builds both representations.
func (c *ClusterCollector) Snapshot(ctx context.Context, namespace string) (*model.Snapshot, error) {
	objs, err := c.Collect(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return Build(namespace, c.deps.ClusterName, objs), nil
}

func (c *ClusterCollector) collect(ctx context.Context, namespace string) ([]*unstructured.Unstructured, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deps.Timeout)
	defer cancel()

	start := time.Now()
	lists, err := parallel.Map(ctx, c.deps.Resources, c.deps.Concurrency,
		func(ctx context.Context, _ int, gvr schema.GroupVersionResource) ([]*unstructured.Unstructured, error) {
			return c.listResource(ctx, namespace, gvr)
		})
	if err != nil {
		return nil, err
	}

	var objs []*unstructured.Unstructured
	for _, list := range lists {
		objs = append(objs, list...)
	}
	sort.Slice(objs, func(i, j int) bool { return ObjectKey(objs[i]) < ObjectKey(objs[j]) })

	c.deps.Logger.Debug(fmt.Sprintf("Collected %d objects from %s/%s in %s",
		len(objs), c.deps.ClusterName, namespace, time.Since(start).Round(time.Millisecond)), clusterLogSource)
	return objs, nil
}

func (c *ClusterCollector) listResource(ctx context.Context, namespace string, gvr schema.GroupVersionResource) ([]*unstructured.Unstructured, error) {
	list, err := c.deps.Client.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if isSkippable(err) {
			klog.V(2).Infof("collect: skipping %s in %s/%s: %v", gvr.String(), c.deps.ClusterName, namespace, err)
			c.deps.Logger.Warn(fmt.Sprintf("Skipping %s in %s: %v", gvr.Resource, namespace, err), clusterLogSource)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s in %s: %w", gvr.Resource, namespace, err)
	}

	out := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		item := &list.Items[i]
		if item.GetKind() == "" {
			item.SetKind(kindFromList(list.GetKind()))
		}
		if item.GetAPIVersion() == "" {
			item.SetAPIVersion(gvr.GroupVersion().String())
		}
		out = append(out, item)
	}
	return out, nil
}

// isSkippable reports list errors caused by RBAC or an API the cluster does not serve.
func isSkippable(err error) bool {
	return apierrors.IsNotFound(err) || apierrors.IsForbidden(err) || apierrors.IsMethodNotSupported(err)
}

func kindFromList(listKind string) string {
	return strings.TrimSuffix(listKind, "List")
}

// NewDynamicClient builds a dynamic client from kubeconfig (default loading rules when
// empty) and context (current context when empty). It also returns the resolved context
// name for labelling snapshots.
func NewDynamicClient(kubeconfig, kubeContext string) (dynamic.Interface, string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	name := kubeContext
	if name == "" {
		raw, err := clientConfig.RawConfig()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		name = raw.CurrentContext
	}

	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build client config for context %q: %w", name, err)
	}
	client, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return client, name, nil
}
