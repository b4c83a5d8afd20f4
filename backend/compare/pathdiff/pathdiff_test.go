package pathdiff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

func namespace(name string, objects map[string]*model.FlatObject) *model.FlatNamespace {
	ns := model.NewFlatNamespace(name, "")
	for k, v := range objects {
		ns.Add(k, v)
	}
	return ns
}

func deployment(spec map[string]string) *model.FlatObject {
	return &model.FlatObject{
		Kind:       "Deployment",
		APIVersion: "apps/v1",
		Name:       "web",
		Metadata:   map[string]string{"name": "web", "labels.app": "web"},
		Spec:       spec,
	}
}

func TestChecklistDriftReportsDifferentValue(t *testing.T) {
	baseline := namespace("baseline", map[string]*model.FlatObject{
		"web": {Kind: "Deployment", Spec: map[string]string{"replicas": "3"}},
	})
	actual := namespace("prod", map[string]*model.FlatObject{
		"web": deployment(map[string]string{"replicas": "5", "paused": "false"}),
	})

	result := CompareWithBaseline(baseline, actual, "prod", nil)
	oc := result.ObjectComparisons["web"]
	require.NotNil(t, oc)
	require.Len(t, oc.Items, 1)
	require.Equal(t, "spec.replicas", oc.Items[0].Key)
	require.Equal(t, "3", *oc.Items[0].LeftValue)
	require.Equal(t, "5", *oc.Items[0].RightValue)
	require.Equal(t, model.StatusDifferent, oc.Items[0].Status)
	require.Equal(t, BaselineLabel, result.LeftLabel)
	require.Equal(t, "prod", result.RightLabel)
}

func TestMissingObjectIsReportedByID(t *testing.T) {
	baseline := namespace("baseline", map[string]*model.FlatObject{"web": deployment(map[string]string{"replicas": "3"})})
	actual := namespace("prod", nil)

	result := CompareNamespace(baseline, actual, "baseline", "prod", nil)
	oc := result.ObjectComparisons["web"]
	require.Len(t, oc.Items, 1)
	require.Equal(t, "web", oc.Items[0].Key)
	require.Equal(t, model.StatusOnlyInLeft, oc.Items[0].Status)
	require.Equal(t, "Deployment", oc.ObjectType)
	require.Equal(t, 1, result.Summary.OnlyInLeft)

	reverse := CompareNamespace(actual, baseline, "prod", "baseline", nil)
	require.Equal(t, model.StatusOnlyInRight, reverse.ObjectComparisons["web"].Items[0].Status)
	require.Equal(t, "Deployment", reverse.ObjectComparisons["web"].ObjectType)
}

func TestOnlyLeftKeysAreCompared(t *testing.T) {
	left := namespace("l", map[string]*model.FlatObject{"web": deployment(map[string]string{"replicas": "3", "strategy.type": "Recreate"})})
	right := namespace("r", map[string]*model.FlatObject{"web": deployment(map[string]string{"replicas": "3", "minReadySeconds": "10"})})

	oc := CompareNamespace(left, right, "l", "r", nil).ObjectComparisons["web"]
	require.Len(t, oc.Items, 4)

	item, ok := oc.Item("spec.strategy.type")
	require.True(t, ok)
	require.Equal(t, model.StatusOnlyInLeft, item.Status)
	require.Nil(t, item.RightValue)

	_, ok = oc.Item("spec.minReadySeconds")
	require.False(t, ok, "right-only fields are outside the left schema")
}

func TestConfigDataTrailingNewlinesAreIgnored(t *testing.T) {
	left := namespace("l", map[string]*model.FlatObject{"cfg": {
		Kind: "ConfigMap",
		Data: map[string]string{"app.properties": "a=1\nb=2"},
		Spec: map[string]string{"note": "x"},
	}})
	right := namespace("r", map[string]*model.FlatObject{"cfg": {
		Kind: "ConfigMap",
		Data: map[string]string{"app.properties": "a=1\nb=2\n\n"},
		Spec: map[string]string{"note": "x\n"},
	}})

	oc := CompareNamespace(left, right, "l", "r", nil).ObjectComparisons["cfg"]
	data, _ := oc.Item("data.app.properties")
	require.Equal(t, model.StatusMatch, data.Status)
	require.Equal(t, "a=1\nb=2\n\n", *data.RightValue, "reported values are not rewritten")

	spec, _ := oc.Item("spec.note")
	require.Equal(t, model.StatusDifferent, spec.Status, "normalisation only applies to data")
}

func TestReflexiveComparisonHasNoDifferences(t *testing.T) {
	objects := map[string]*model.FlatObject{
		"web": deployment(map[string]string{"replicas": "3", "template.spec.containers[0].image": "nginx"}),
		"cfg": {Kind: "ConfigMap", Data: map[string]string{"k": "v\n"}},
	}
	left := namespace("l", objects)
	right := namespace("r", objects)

	for _, result := range []*model.NamespaceComparison{
		CompareNamespace(left, right, "l", "r", nil),
		CompareWithBaseline(left, right, "r", nil),
	} {
		require.Equal(t, 0, result.DifferenceCount())
		require.Equal(t, 100.0, result.Summary.MatchPercentage)
		require.Equal(t, 2, result.Summary.Common)
	}
}

func TestBaselineSurfacesSiblingListElements(t *testing.T) {
	baseline := namespace("baseline", map[string]*model.FlatObject{"web": {
		Kind: "Deployment",
		Spec: map[string]string{"template.spec.containers[0].image": "nginx:1.25"},
	}})
	actual := namespace("prod", map[string]*model.FlatObject{"web": deployment(map[string]string{
		"template.spec.containers[0].image": "envoy:1.30",
		"template.spec.containers[1].image": "nginx:1.25",
		"template.spec.containers[2].image": "busybox",
		"template.spec.containers[1].name":  "nginx",
		"replicas":                          "2",
	})})

	oc := CompareWithBaseline(baseline, actual, "prod", nil).ObjectComparisons["web"]
	require.Len(t, oc.Items, 3)

	require.Equal(t, "spec.template.spec.containers[0].image", oc.Items[0].Key)
	require.Equal(t, model.StatusDifferent, oc.Items[0].Status)

	require.Equal(t, "spec.template.spec.containers[1].image", oc.Items[1].Key)
	require.Equal(t, model.StatusOnlyInRight, oc.Items[1].Status)
	require.Nil(t, oc.Items[1].LeftValue)
	require.Equal(t, "nginx:1.25", *oc.Items[1].RightValue)

	require.Equal(t, "spec.template.spec.containers[2].image", oc.Items[2].Key)
}

func TestSymmetricModeDoesNotAliasLists(t *testing.T) {
	left := namespace("l", map[string]*model.FlatObject{"web": {Spec: map[string]string{"ports[0].port": "80"}}})
	right := namespace("r", map[string]*model.FlatObject{"web": {Spec: map[string]string{"ports[0].port": "80", "ports[1].port": "443"}}})

	oc := CompareNamespace(left, right, "l", "r", nil).ObjectComparisons["web"]
	require.Len(t, oc.Items, 1)
}

func TestBaselineItemCountIsBounded(t *testing.T) {
	baselineObj := &model.FlatObject{Spec: map[string]string{
		"replicas":                          "3",
		"template.spec.containers[0].image": "nginx",
		"template.spec.volumes[1].name":     "data",
		"template.spec.containers[0].ports[0].containerPort": "80",
	}}
	actualObj := &model.FlatObject{Spec: map[string]string{
		"replicas":                          "3",
		"template.spec.containers[0].image": "nginx",
		"template.spec.containers[1].image": "sidecar",
		"template.spec.volumes[0].name":     "cache",
		"template.spec.volumes[1].name":     "data",
		"template.spec.volumes[0].emptyDir": "{}",
		"template.spec.containers[0].ports[0].containerPort": "80",
		"template.spec.containers[0].ports[1].containerPort": "9090",
	}}

	oc := CompareWithBaseline(
		namespace("b", map[string]*model.FlatObject{"web": baselineObj}),
		namespace("a", map[string]*model.FlatObject{"web": actualObj}),
		"a", nil,
	).ObjectComparisons["web"]

	// containers[1].image, ports[1].containerPort and volumes[0].name are aliases.
	require.Len(t, oc.Items, baselineObj.FieldCount()+3)
	require.LessOrEqual(t, len(oc.Items), baselineObj.FieldCount()+actualObj.FieldCount())
}

func TestFilterRemovesFieldsFromBothSides(t *testing.T) {
	matcher := ignore.New([]string{"metadata.labels", "*image*"})
	left := namespace("l", map[string]*model.FlatObject{"web": deployment(map[string]string{
		"replicas":                          "3",
		"template.spec.containers[0].image": "nginx:1",
	})})
	right := namespace("r", map[string]*model.FlatObject{"web": deployment(map[string]string{
		"replicas":                          "3",
		"template.spec.containers[0].image": "nginx:2",
		"template.spec.containers[1].image": "envoy",
	})})

	oc := CompareWithBaseline(left, right, "r", matcher).ObjectComparisons["web"]
	for _, item := range oc.Items {
		require.NotContains(t, item.Key, "image")
		require.NotContains(t, item.Key, "labels")
	}
	require.Equal(t, 0, oc.DifferenceCount())
	require.Len(t, oc.Items, 2)
}

func TestNilEntriesOnBothSidesYieldBothNull(t *testing.T) {
	left := namespace("l", map[string]*model.FlatObject{"web": nil, "api": nil})
	right := namespace("r", map[string]*model.FlatObject{"web": nil})

	result := CompareNamespace(left, right, "l", "r", nil)
	web := result.ObjectComparisons["web"]
	require.Len(t, web.Items, 1)
	require.Equal(t, model.StatusBothNull, web.Items[0].Status)
	require.Empty(t, result.ObjectComparisons["api"].Items)
	require.Equal(t, 0, result.DifferenceCount())
}

func TestObjectTypeFallsBackToRight(t *testing.T) {
	oc := CompareObject("svc", &model.FlatObject{}, &model.FlatObject{Kind: "Service"}, nil)
	require.Equal(t, "Service", oc.ObjectType)
}

func TestNilNamespacesAreEmpty(t *testing.T) {
	result := CompareNamespace(nil, namespace("r", map[string]*model.FlatObject{"web": deployment(nil)}), "l", "r", nil)
	require.Equal(t, 1, result.Summary.OnlyInRight)
}

func TestListAliasesUsesLastIndex(t *testing.T) {
	right := map[string]string{
		"spec.containers[0].env[0].value": "a",
		"spec.containers[0].env[3].value": "b",
		"spec.containers[1].env[0].value": "c",
	}
	require.Equal(t, []string{"spec.containers[0].env[3].value"}, listAliases("spec.containers[0].env[0].value", right))
	require.Nil(t, listAliases("spec.replicas", right))
}
