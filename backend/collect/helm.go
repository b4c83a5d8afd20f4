/*
 * backend/collect/helm.go
 *
 * Baselines from Helm releases.
 * - Reads the rendered manifest stored with a release.
 * - Feeds it through the manifest parser with the release namespace as default.
 */

package collect

import (
	"fmt"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/cli"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const helmLogSource = "HelmCollector"

// HelmDependencies wires a HelmCollector.
type HelmDependencies struct {
	Kubeconfig string
	Context    string
	Logger     logging.Interface
	// ActionConfigFactory allows callers (primarily tests) to supply a pre-wired Helm action configuration.
	ActionConfigFactory func(settings *cli.EnvSettings, namespace string) (*action.Configuration, error)
}

// HelmCollector reads release manifests through the Helm storage backend.
type HelmCollector struct {
	deps HelmDependencies
}

func NewHelmCollector(deps HelmDependencies) *HelmCollector {
	deps.Logger = logging.OrNoop(deps.Logger)
	return &HelmCollector{deps: deps}
}

// ReleaseManifest returns the rendered manifest of the latest revision of a release.
func (h *HelmCollector) ReleaseManifest(namespace, name string) (string, error) {
	actionConfig, err := h.initActionConfig(h.helmSettings(), namespace)
	if err != nil {
		return "", err
	}

	rel, err := action.NewGet(actionConfig).Run(name)
	if err != nil {
		return "", fmt.Errorf("failed to get release %s: %w", name, err)
	}
	h.deps.Logger.Debug(fmt.Sprintf("Loaded Helm release %s/%s revision %d", namespace, name, rel.Version), helmLogSource)
	return rel.Manifest, nil
}

// Collect parses the objects rendered by a release.
func (h *HelmCollector) Collect(namespace, name string) ([]*unstructured.Unstructured, error) {
	manifest, err := h.ReleaseManifest(namespace, name)
	if err != nil {
		return nil, err
	}
	objs, err := ParseManifestString(manifest, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest of release %s: %w", name, err)
	}
	return objs, nil
}

// Snapshot builds a namespace snapshot named after the release.
func (h *HelmCollector) Snapshot(namespace, name string) (*model.Snapshot, error) {
	objs, err := h.Collect(namespace, name)
	if err != nil {
		return nil, err
	}
	return Build(name, h.deps.Context, objs), nil
}

func (h *HelmCollector) helmSettings() *cli.EnvSettings {
	settings := cli.New()
	if h.deps.Kubeconfig != "" {
		settings.KubeConfig = h.deps.Kubeconfig
	}
	if h.deps.Context != "" {
		settings.KubeContext = h.deps.Context
	}
	return settings
}

func (h *HelmCollector) initActionConfig(settings *cli.EnvSettings, namespace string) (*action.Configuration, error) {
	if h.deps.ActionConfigFactory != nil {
		return h.deps.ActionConfigFactory(settings, namespace)
	}
	actionConfig := new(action.Configuration)
	if err := actionConfig.Init(settings.RESTClientGetter(), namespace, "secret", h.logDebugf); err != nil {
		return nil, fmt.Errorf("failed to initialize Helm configuration: %w", err)
	}
	return actionConfig, nil
}

func (h *HelmCollector) logDebugf(format string, v ...interface{}) {
	h.deps.Logger.Debug(fmt.Sprintf(format, v...), helmLogSource)
}
