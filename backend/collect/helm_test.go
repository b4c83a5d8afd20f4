package collect

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/kube"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage"
	"helm.sh/helm/v3/pkg/storage/driver"
	helmTime "helm.sh/helm/v3/pkg/time"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/luxury-yacht/driftcheck/backend/testsupport"
)

type fakeKubeClient struct{}

func (fakeKubeClient) Create(kube.ResourceList) (*kube.Result, error) { return &kube.Result{}, nil }
func (fakeKubeClient) Wait(kube.ResourceList, time.Duration) error    { return nil }
func (fakeKubeClient) WaitWithJobs(kube.ResourceList, time.Duration) error {
	return nil
}
func (fakeKubeClient) Delete(kube.ResourceList) (*kube.Result, []error) {
	return &kube.Result{}, nil
}
func (fakeKubeClient) WatchUntilReady(kube.ResourceList, time.Duration) error { return nil }
func (fakeKubeClient) Update(kube.ResourceList, kube.ResourceList, bool) (*kube.Result, error) {
	return &kube.Result{}, nil
}
func (fakeKubeClient) Build(io.Reader, bool) (kube.ResourceList, error) {
	return kube.ResourceList{}, nil
}
func (fakeKubeClient) WaitAndGetCompletedPodPhase(string, time.Duration) (corev1.PodPhase, error) {
	return corev1.PodSucceeded, nil
}
func (fakeKubeClient) IsReachable() error                                   { return nil }
func (fakeKubeClient) WaitForDelete(kube.ResourceList, time.Duration) error { return nil }
func (fakeKubeClient) UpdateThreeWayMerge(kube.ResourceList, kube.ResourceList, bool) (*kube.Result, error) {
	return &kube.Result{}, nil
}
func (fakeKubeClient) GetPodList(string, metav1.ListOptions) (*corev1.PodList, error) {
	return &corev1.PodList{}, nil
}
func (fakeKubeClient) OutputContainerLogsForPodList(*corev1.PodList, string, func(string, string, string) io.Writer) error {
	return nil
}
func (fakeKubeClient) DeleteWithPropagationPolicy(kube.ResourceList, metav1.DeletionPropagation) (*kube.Result, []error) {
	return &kube.Result{}, nil
}
func (fakeKubeClient) Get(kube.ResourceList, bool) (map[string][]runtime.Object, error) {
	return map[string][]runtime.Object{}, nil
}
func (fakeKubeClient) BuildTable(io.Reader, bool) (kube.ResourceList, error) {
	return kube.ResourceList{}, nil
}

const releaseManifest = `---
# Source: web/templates/deployment.yaml
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  replicas: 3
---
# Source: web/templates/service.yaml
apiVersion: v1
kind: Service
metadata:
  name: web
spec:
  ports:
  - port: 80
`

func buildRelease(name, namespace, manifest string, version int) *release.Release {
	now := time.Now()
	return &release.Release{
		Name:      name,
		Namespace: namespace,
		Version:   version,
		Manifest:  manifest,
		Chart:     &chart.Chart{Metadata: &chart.Metadata{Name: name, Version: "1.0.0"}},
		Info: &release.Info{
			FirstDeployed: helmTime.Time{Time: now.Add(-time.Hour)},
			LastDeployed:  helmTime.Time{Time: now},
			Status:        release.StatusDeployed,
		},
	}
}

func newHelmCollectorWithReleases(t *testing.T, releases ...*release.Release) *HelmCollector {
	t.Helper()
	store := storage.Init(driver.NewMemory())
	for _, rel := range releases {
		require.NoError(t, store.Create(rel))
	}

	return NewHelmCollector(HelmDependencies{
		Context: "prod",
		Logger:  testsupport.NoopLogger{},
		ActionConfigFactory: func(*cli.EnvSettings, string) (*action.Configuration, error) {
			return &action.Configuration{
				Releases:   store,
				KubeClient: &fakeKubeClient{},
				Log:        func(string, ...interface{}) {},
			}, nil
		},
	})
}

func TestHelmCollectorSnapshotUsesLatestRevision(t *testing.T) {
	collector := newHelmCollectorWithReleases(t,
		buildRelease("web", "team-a", "kind: ConfigMap\nmetadata:\n  name: old\n", 1),
		buildRelease("web", "team-a", releaseManifest, 2),
	)

	snap, err := collector.Snapshot("team-a", "web")
	require.NoError(t, err)
	require.Equal(t, "web", snap.Name)
	require.Equal(t, "prod", snap.ClusterName)
	require.ElementsMatch(t, []string{"Deployment/web", "Service/web"}, snap.Flat.Keys())

	deployment, _ := snap.Flat.Lookup("Deployment/web")
	require.Equal(t, "team-a", deployment.Namespace)
	require.Equal(t, "3", deployment.Spec["replicas"])
}

func TestHelmCollectorMissingRelease(t *testing.T) {
	collector := newHelmCollectorWithReleases(t)
	_, err := collector.Collect("team-a", "absent")
	require.ErrorContains(t, err, "failed to get release absent")
}

func TestHelmCollectorInitError(t *testing.T) {
	collector := NewHelmCollector(HelmDependencies{
		ActionConfigFactory: func(*cli.EnvSettings, string) (*action.Configuration, error) {
			return nil, errors.New("no cluster")
		},
	})
	_, err := collector.ReleaseManifest("ns", "web")
	require.ErrorContains(t, err, "no cluster")
}

func TestHelmCollectorRejectsBrokenManifest(t *testing.T) {
	collector := newHelmCollectorWithReleases(t, buildRelease("web", "team-a", "metadata:\n  name: x\n", 1))
	_, err := collector.Collect("team-a", "web")
	require.ErrorContains(t, err, "failed to parse manifest of release web")
}
