package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

func container(name, image string) map[string]any {
	return map[string]any{
		"name":  name,
		"image": image,
		"ports": []any{map[string]any{"containerPort": int64(8080), "protocol": "TCP"}},
		"args":  []any{"--verbose", "--port=8080"},
	}
}

func deployment(containers ...map[string]any) *model.StructuredObject {
	list := make([]any, len(containers))
	for i, c := range containers {
		list[i] = c
	}
	return &model.StructuredObject{
		Kind:       "Deployment",
		APIVersion: "apps/v1",
		Name:       "web",
		Metadata:   model.ValueOf(map[string]any{"name": "web", "labels": map[string]any{"app": "web"}}),
		Spec: model.ValueOf(map[string]any{
			"replicas": int64(3),
			"template": map[string]any{"spec": map[string]any{"containers": list}},
		}),
	}
}

func namespace(name string, objects map[string]*model.StructuredObject) *model.StructuredNamespace {
	ns := model.NewStructuredNamespace(name, "")
	for k, v := range objects {
		ns.Add(k, v)
	}
	return ns
}

func TestReorderedContainersProduceNoDifferences(t *testing.T) {
	left := namespace("baseline", map[string]*model.StructuredObject{
		"web": deployment(container("nginx", "nginx:1.25"), container("sidecar", "envoy:1.30")),
	})
	right := namespace("prod", map[string]*model.StructuredObject{
		"web": deployment(container("sidecar", "envoy:1.30"), container("nginx", "nginx:1.25")),
	})

	result := CompareNamespace(left, right, "baseline", "prod", nil)
	require.Equal(t, 0, result.DifferenceCount())
	require.Equal(t, 0, result.Summary.ObjectsWithDifferences)

	oc := result.ObjectComparisons["web"]
	item, ok := oc.Item("spec.template.spec.containers[nginx].image")
	require.True(t, ok)
	require.Equal(t, model.StatusMatch, item.Status)

	port, ok := oc.Item("spec.template.spec.containers[sidecar].ports[8080].protocol")
	require.True(t, ok)
	require.Equal(t, model.StatusMatch, port.Status)
}

func TestChangedContainerIsPairedByName(t *testing.T) {
	left := namespace("l", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:1.25"))})
	right := namespace("r", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:1.27"), container("sidecar", "envoy"))})

	oc := CompareNamespace(left, right, "l", "r", nil).ObjectComparisons["web"]
	require.Equal(t, 2, oc.DifferenceCount())

	image, _ := oc.Item("spec.template.spec.containers[nginx].image")
	require.Equal(t, model.StatusDifferent, image.Status)
	require.Equal(t, "nginx:1.25", *image.LeftValue)
	require.Equal(t, "nginx:1.27", *image.RightValue)

	sidecar, _ := oc.Item("spec.template.spec.containers[sidecar]")
	require.Equal(t, model.StatusOnlyInRight, sidecar.Status)
	require.Equal(t, model.PresencePlaceholder, *sidecar.RightValue)
	require.Nil(t, sidecar.LeftValue)
}

func TestIdentityFallbackNeverFalselyMatches(t *testing.T) {
	left := &model.StructuredObject{Kind: "Pod", Spec: model.ValueOf(map[string]any{
		"tolerations": []any{map[string]any{"operator": "Exists", "effect": "NoSchedule"}},
	})}
	right := &model.StructuredObject{Kind: "Pod", Spec: model.ValueOf(map[string]any{
		"tolerations": []any{map[string]any{"operator": "Exists", "effect": "NoExecute"}},
	})}

	oc := CompareObject("pod", left, right, nil)
	require.Len(t, oc.Items, 2)

	statuses := map[model.Status]int{}
	for _, item := range oc.Items {
		statuses[item.Status]++
		require.Contains(t, item.Key, "spec.tolerations[hash:")
	}
	require.Equal(t, 1, statuses[model.StatusOnlyInLeft])
	require.Equal(t, 1, statuses[model.StatusOnlyInRight])
	require.Zero(t, statuses[model.StatusMatch])
}

func TestIdentityFallbackPairsIdenticalContent(t *testing.T) {
	tolerations := []any{
		map[string]any{"operator": "Exists", "effect": "NoSchedule"},
		map[string]any{"operator": "Exists", "effect": "NoExecute"},
	}
	reversed := []any{tolerations[1], tolerations[0]}
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"tolerations": tolerations})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"tolerations": reversed})}

	oc := CompareObject("pod", left, right, nil)
	require.Equal(t, 0, oc.DifferenceCount())
	require.Len(t, oc.Items, 4)
}

func TestIdentityPriority(t *testing.T) {
	require.Equal(t, "http", Identity(model.ValueOf(map[string]any{"name": "http", "port": 80})))
	require.Equal(t, "8080", Identity(model.ValueOf(map[string]any{"containerPort": 8080, "port": 80})))
	require.Equal(t, "443", Identity(model.ValueOf(map[string]any{"port": float64(443)})))
	require.Equal(t, "10.0.0.1", Identity(model.ValueOf(map[string]any{"ip": "10.0.0.1"})))
	require.Equal(t, "tls.crt", Identity(model.ValueOf(map[string]any{"key": "tls.crt", "path": "cert"})))

	// A compound "name" does not count as an identity.
	id := Identity(model.ValueOf(map[string]any{"name": map[string]any{"first": "x"}}))
	require.Contains(t, id, hashIdentityPrefix)
}

func TestDuplicateIdentitiesAreReportedOnce(t *testing.T) {
	ports := func(protocols ...string) []any {
		out := make([]any, len(protocols))
		for i, p := range protocols {
			out[i] = map[string]any{"port": 53, "protocol": p}
		}
		return out
	}
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"ports": ports("UDP", "TCP")})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"ports": ports("UDP")})}

	oc := CompareObject("dns", left, right, nil)
	extra, ok := oc.Item("spec.ports[53#2]")
	require.True(t, ok)
	require.Equal(t, model.StatusOnlyInLeft, extra.Status)
	require.Equal(t, 1, oc.DifferenceCount())
}

func TestSimpleSequencesAreSets(t *testing.T) {
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{
		"args":     []any{"--a", "--b"},
		"commands": []any{"run", "serve"},
		"empty":    []any{},
	})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{
		"args":     []any{"--b", "--a", "--a"},
		"commands": []any{"run", "debug"},
		"empty":    []any{},
	})}

	oc := CompareObject("x", left, right, nil)

	args, ok := oc.Item("spec.args")
	require.True(t, ok)
	require.Equal(t, model.StatusMatch, args.Status)
	require.Equal(t, "2 items", *args.LeftValue)
	require.Equal(t, "3 items", *args.RightValue)

	serve, _ := oc.Item("spec.commands[serve]")
	require.Equal(t, model.StatusOnlyInLeft, serve.Status)
	require.Equal(t, "serve", *serve.LeftValue)
	debug, _ := oc.Item("spec.commands[debug]")
	require.Equal(t, model.StatusOnlyInRight, debug.Status)

	_, ok = oc.Item("spec.commands")
	require.False(t, ok)
	_, ok = oc.Item("spec.empty")
	require.False(t, ok)
}

func TestIgnoreAppliesToSimpleSequenceElements(t *testing.T) {
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"args": []any{"--a"}})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"args": []any{"--a", "--debug", "--trace"}})}

	for _, pattern := range []string{"spec.args[--debug]", "*--debug*"} {
		oc := CompareObject("x", left, right, ignore.New([]string{pattern}))
		_, ok := oc.Item("spec.args[--debug]")
		require.False(t, ok, pattern)
		trace, ok := oc.Item("spec.args[--trace]")
		require.True(t, ok, pattern)
		require.Equal(t, model.StatusOnlyInRight, trace.Status)
		_, ok = oc.Item("spec.args")
		require.False(t, ok, pattern)
	}

	oc := CompareObject("x", left, right, ignore.New([]string{"*--debug*", "*--trace*"}))
	require.Equal(t, 0, oc.DifferenceCount())
	args, ok := oc.Item("spec.args")
	require.True(t, ok)
	require.Equal(t, model.StatusMatch, args.Status)
}

func TestScalarLeavesAlwaysRecorded(t *testing.T) {
	obj := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"replicas": 3, "paused": false})}
	oc := CompareObject("x", obj, obj, nil)
	require.Len(t, oc.Items, 2)
	for _, item := range oc.Items {
		require.Equal(t, model.StatusMatch, item.Status)
	}
}

func TestNumericRepresentationsCompareEqual(t *testing.T) {
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"replicas": int64(3)})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"replicas": float64(3)})}
	require.Equal(t, 0, CompareObject("x", left, right, nil).DifferenceCount())
}

func TestShapeMismatchIsDifferent(t *testing.T) {
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"selector": map[string]any{"app": "web"}})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"selector": "app=web"})}

	item, ok := CompareObject("x", left, right, nil).Item("spec.selector")
	require.True(t, ok)
	require.Equal(t, model.StatusDifferent, item.Status)
	require.Equal(t, `{"app":"web"}`, *item.LeftValue)
}

func TestOneSidedScalarKeepsItsValue(t *testing.T) {
	left := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"replicas": 3})}
	right := &model.StructuredObject{Spec: model.ValueOf(map[string]any{})}

	item, ok := CompareObject("x", left, right, nil).Item("spec.replicas")
	require.True(t, ok)
	require.Equal(t, model.StatusOnlyInLeft, item.Status)
	require.Equal(t, "3", *item.LeftValue)
}

func TestDataSectionAbsentOnBothSidesIsSilent(t *testing.T) {
	obj := &model.StructuredObject{Spec: model.ValueOf(map[string]any{"a": "b"})}
	oc := CompareObject("x", obj, obj, nil)
	for _, item := range oc.Items {
		require.NotContains(t, item.Key, "data")
	}
}

func TestMissingObjectsAndBothNull(t *testing.T) {
	left := namespace("l", map[string]*model.StructuredObject{"web": deployment(), "gone": nil})
	right := namespace("r", map[string]*model.StructuredObject{"gone": nil, "extra": deployment()})

	result := CompareNamespace(left, right, "l", "r", nil)
	require.Equal(t, model.StatusOnlyInLeft, result.ObjectComparisons["web"].Items[0].Status)
	require.Equal(t, "web", result.ObjectComparisons["web"].Items[0].Key)
	require.Equal(t, model.StatusOnlyInRight, result.ObjectComparisons["extra"].Items[0].Status)
	require.Equal(t, model.StatusBothNull, result.ObjectComparisons["gone"].Items[0].Status)
	require.Equal(t, 2, result.DifferenceCount())
	require.Equal(t, 0.0, result.Summary.MatchPercentage)
}

func TestReflexivity(t *testing.T) {
	objects := map[string]*model.StructuredObject{
		"web": deployment(container("nginx", "nginx"), container("sidecar", "envoy")),
		"cfg": {Kind: "ConfigMap", Data: model.ValueOf(map[string]any{"app.properties": "a=1\n"})},
	}
	result := CompareNamespace(namespace("l", objects), namespace("r", objects), "l", "r", nil)
	require.Equal(t, 0, result.DifferenceCount())
	for _, oc := range result.ObjectComparisons {
		for _, item := range oc.Items {
			require.Contains(t, []model.Status{model.StatusMatch, model.StatusBothNull}, item.Status)
		}
	}
}

func TestIgnoreRemovesExactlyTheSubtree(t *testing.T) {
	left := namespace("l", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:1"))})
	right := namespace("r", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:2"), container("sidecar", "envoy"))})

	base := CompareNamespace(left, right, "l", "r", ignore.New(nil)).ObjectComparisons["web"]
	pattern := "spec.template.spec.containers"
	filtered := CompareNamespace(left, right, "l", "r", ignore.New([]string{pattern})).ObjectComparisons["web"]

	covered := ignore.New([]string{pattern})
	var expected []model.KeyComparison
	for _, item := range base.Items {
		if !covered.ShouldIgnore(item.Key) {
			expected = append(expected, item)
		}
	}
	require.Equal(t, expected, filtered.Items)
	require.Less(t, len(filtered.Items), len(base.Items))
}

func TestIgnoreContainsPattern(t *testing.T) {
	left := namespace("l", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:1"))})
	right := namespace("r", map[string]*model.StructuredObject{"web": deployment(container("nginx", "nginx:2"))})

	result := CompareNamespace(left, right, "l", "r", ignore.New([]string{"*.image"}))
	require.Equal(t, 0, result.DifferenceCount())
}

func TestHashIdentityIgnoresNumericEncoding(t *testing.T) {
	fromYAML := model.ValueOf(map[string]any{"weight": float64(10), "effect": "NoSchedule"})
	fromAPI := model.ValueOf(map[string]any{"weight": int64(10), "effect": "NoSchedule"})
	require.Equal(t, Identity(fromYAML), Identity(fromAPI))
}
