package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
)

func newCRDCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "crd",
		Short: "Emit the Tenant CustomResourceDefinition as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCRD(outFile)
		},
	}

	cmd.Flags().StringVar(&outFile, "output", "", "file to write the CRD YAML to (default: stdout)")
	return cmd
}

func runCRD(outFile string) error {
	out, err := yaml.Marshal(tenantCRD())
	if err != nil {
		return fmt.Errorf("failed to marshal CRD: %w", err)
	}

	if outFile == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(outFile, out, 0o644)
}

// tenantCRD hand-builds the CustomResourceDefinition for Tenant (spec §6).
// This stands in for controller-gen, which is not run in this environment.
func tenantCRD() *apiextensionsv1.CustomResourceDefinition {
	preserveUnknownFields := true

	schema := &apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"spec": {
				Type:     "object",
				Required: []string{"pools"},
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"pools": {
						Type:     "array",
						MinItems: int64Ptr(1),
						Items: &apiextensionsv1.JSONSchemaPropsOrArray{
							Schema: &apiextensionsv1.JSONSchemaProps{
								Type:     "object",
								Required: []string{"name", "servers"},
								Properties: map[string]apiextensionsv1.JSONSchemaProps{
									"name":    {Type: "string", MinLength: int64Ptr(1)},
									"servers": {Type: "integer", Minimum: float64Ptr(1)},
									"persistence": {
										Type: "object",
										Properties: map[string]apiextensionsv1.JSONSchemaProps{
											"volumesPerServer": {Type: "integer", Minimum: float64Ptr(1)},
										},
										XPreserveUnknownFields: &preserveUnknownFields,
									},
								},
								// Storage-system minimum (pool invariant): a pool must
								// provision at least 4 volumes across all its servers.
								XValidations: apiextensionsv1.ValidationRules{
									{
										Rule:    "has(self.persistence) && has(self.persistence.volumesPerServer) && self.servers * self.persistence.volumesPerServer >= 4",
										Message: "servers * persistence.volumesPerServer must be >= 4",
									},
								},
								XPreserveUnknownFields: &preserveUnknownFields,
							},
						},
					},
				},
				XPreserveUnknownFields: &preserveUnknownFields,
			},
			"status": {
				Type:                   "object",
				XPreserveUnknownFields: &preserveUnknownFields,
			},
		},
		XPreserveUnknownFields: &preserveUnknownFields,
	}

	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apiextensions.k8s.io/v1",
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: "tenants." + rustfsv1alpha1.GroupVersion.Group,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: rustfsv1alpha1.GroupVersion.Group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Kind:     "Tenant",
				ListKind: "TenantList",
				Plural:   "tenants",
				Singular: "tenant",
				ShortNames: []string{
					"tenant",
				},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    rustfsv1alpha1.GroupVersion.Version,
					Served:  true,
					Storage: true,
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: schema,
					},
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
						{Name: "State", Type: "string", JSONPath: ".status.currentState"},
						{Name: "Status", Type: "string", JSONPath: `.status.conditions[?(@.type=="Ready")].status`},
						{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
					},
				},
			},
		},
	}
}

func int64Ptr(i int64) *int64       { return &i }
func float64Ptr(f float64) *float64 { return &f }
