package testsupport

import (
	"strings"
	"testing"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/fake"
)

// resourceKinds maps plural resource names onto their kinds for list registration.
var resourceKinds = map[string]string{
	"deployments":              "Deployment",
	"statefulsets":             "StatefulSet",
	"daemonsets":               "DaemonSet",
	"cronjobs":                 "CronJob",
	"services":                 "Service",
	"configmaps":               "ConfigMap",
	"secrets":                  "Secret",
	"serviceaccounts":          "ServiceAccount",
	"ingresses":                "Ingress",
	"networkpolicies":          "NetworkPolicy",
	"horizontalpodautoscalers": "HorizontalPodAutoscaler",
	"poddisruptionbudgets":     "PodDisruptionBudget",
	"httproutes":               "HTTPRoute",
	"grpcroutes":               "GRPCRoute",
}

// ListKinds returns the list kind registration the fake dynamic client needs for gvrs.
func ListKinds(gvrs ...schema.GroupVersionResource) map[schema.GroupVersionResource]string {
	out := make(map[schema.GroupVersionResource]string, len(gvrs))
	for _, gvr := range gvrs {
		kind, ok := resourceKinds[gvr.Resource]
		if !ok {
			kind = strings.TrimSuffix(cases.Title(language.English).String(gvr.Resource), "s")
		}
		out[gvr] = kind + "List"
	}
	return out
}

// NewDynamicClient constructs a dynamic fake client that can list every gvr.
func NewDynamicClient(t testing.TB, gvrs []schema.GroupVersionResource, objects ...runtime.Object) *fake.FakeDynamicClient {
	t.Helper()
	return fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), ListKinds(gvrs...), objects...)
}
