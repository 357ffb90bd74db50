// Package header provides the document header written at the top of
// deployer output such as the run report.
//
// The header follows Kubernetes resource conventions:
//
//	kind: DeploymentReport
//	apiVersion: gitops-deployer.nvidia.com/v1alpha1
//	metadata:
//	  timestamp: "2026-01-02T15:04:05Z"
//	  version: v1.2.3
//	  runID: 5b0f...
//
// Embed Header inline so the fields appear at the top level:
//
//	type Report struct {
//	    header.Header `json:",inline" yaml:",inline"`
//	    ...
//	}
package header
