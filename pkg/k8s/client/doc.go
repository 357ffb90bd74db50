// Package client builds Kubernetes clients for the deployer's Kubernetes
// controller backend.
//
// Cluster access is discovered from, in order: an explicit kubeconfig path,
// the KUBECONFIG environment variable, ~/.kube/config, and finally the
// in-cluster service account.
//
//	dyn, err := client.BuildDynamicClient("")
//	if err != nil {
//	    return err
//	}
//	ctrl := argocd.NewKube(dyn, argocd.KubeOptions{})
package client
