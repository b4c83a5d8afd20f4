package testsupport

import (
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"
)

// DeploymentOption mutates a deployment fixture.
type DeploymentOption func(*appsv1.Deployment)

// DeploymentFixture provides a basic deployment with sensible defaults for tests.
func DeploymentFixture(namespace, name string, opts ...DeploymentOption) *appsv1.Deployment {
	labels := map[string]string{"app": name}
	deployment := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{ContainerFixture("app", "nginx:latest")},
				},
			},
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RollingUpdateDeploymentStrategyType},
		},
		Status: appsv1.DeploymentStatus{
			Replicas:          1,
			ReadyReplicas:     1,
			AvailableReplicas: 1,
			UpdatedReplicas:   1,
		},
	}

	for _, opt := range opts {
		opt(deployment)
	}

	return deployment
}

// DeploymentWithReplicas customises the desired replica count.
func DeploymentWithReplicas(replicas int32) DeploymentOption {
	return func(d *appsv1.Deployment) {
		d.Spec.Replicas = ptr.To[int32](replicas)
	}
}

// DeploymentWithContainers replaces the pod template containers, keeping their order.
func DeploymentWithContainers(containers ...corev1.Container) DeploymentOption {
	return func(d *appsv1.Deployment) {
		d.Spec.Template.Spec.Containers = containers
	}
}

// DeploymentWithAnnotations merges annotations into the deployment metadata.
func DeploymentWithAnnotations(annotations map[string]string) DeploymentOption {
	return func(d *appsv1.Deployment) {
		if d.Annotations == nil {
			d.Annotations = map[string]string{}
		}
		for k, v := range annotations {
			d.Annotations[k] = v
		}
	}
}

// ContainerFixture returns a container exposing port 8080.
func ContainerFixture(name, image string) corev1.Container {
	return corev1.Container{
		Name:  name,
		Image: image,
		Ports: []corev1.ContainerPort{{Name: "http", ContainerPort: 8080, Protocol: corev1.ProtocolTCP}},
	}
}

// ConfigMapFixture returns a config map holding data.
func ConfigMapFixture(namespace, name string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       data,
	}
}

// SecretFixture returns an opaque secret holding data.
func SecretFixture(namespace, name string, data map[string][]byte) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
}

// ServiceFixture returns a ClusterIP service targeting app=name on the given ports.
func ServiceFixture(namespace, name string, ports ...int32) *corev1.Service {
	svc := &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"app": name},
		},
	}
	for _, port := range ports {
		svc.Spec.Ports = append(svc.Spec.Ports, corev1.ServicePort{
			Port:       port,
			TargetPort: intstr.FromInt32(port),
			Protocol:   corev1.ProtocolTCP,
		})
	}
	return svc
}

// HTTPRouteFixture routes hostnames to service:port.
func HTTPRouteFixture(namespace, name, service string, port int32, hostnames ...string) *gatewayv1.HTTPRoute {
	route := &gatewayv1.HTTPRoute{
		TypeMeta:   metav1.TypeMeta{APIVersion: gatewayv1.SchemeGroupVersion.String(), Kind: "HTTPRoute"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: gatewayv1.HTTPRouteSpec{
			Rules: []gatewayv1.HTTPRouteRule{{
				BackendRefs: []gatewayv1.HTTPBackendRef{{
					BackendRef: gatewayv1.BackendRef{
						BackendObjectReference: gatewayv1.BackendObjectReference{
							Name: gatewayv1.ObjectName(service),
							Port: ptr.To(gatewayv1.PortNumber(port)),
						},
					},
				}},
			}},
		},
	}
	for _, host := range hostnames {
		route.Spec.Hostnames = append(route.Spec.Hostnames, gatewayv1.Hostname(host))
	}
	return route
}

// ToUnstructured converts a typed object with its TypeMeta set.
func ToUnstructured(t testing.TB, obj runtime.Object) *unstructured.Unstructured {
	t.Helper()
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		t.Fatalf("failed to convert %T: %v", obj, err)
	}
	return &unstructured.Unstructured{Object: content}
}

// ToUnstructuredList converts every object with ToUnstructured.
func ToUnstructuredList(t testing.TB, objs ...runtime.Object) []*unstructured.Unstructured {
	t.Helper()
	out := make([]*unstructured.Unstructured, 0, len(objs))
	for _, obj := range objs {
		out = append(out, ToUnstructured(t, obj))
	}
	return out
}

// ObjectSlice is a small helper to build []runtime.Object inline.
func ObjectSlice(objects ...runtime.Object) []runtime.Object {
	result := make([]runtime.Object, 0, len(objects))
	for _, obj := range objects {
		if obj != nil {
			result = append(result, obj)
		}
	}
	return result
}
