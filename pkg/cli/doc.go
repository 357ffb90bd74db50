// Package cli implements the command-line interface of gitops-deployer.
//
// # Overview
//
// gitops-deployer runs one deployment operation per invocation, typically as
// a CI job step. The operation is selected with --deployment-type (or the
// DEPLOYMENT_TYPE environment variable):
//
//	promote  tag the commit image with the environment name and roll it out
//	preview  create or update the preview application of the target branch
//	destroy  delete the preview application of the target branch
//	clean    delete every preview application of the development application
//
// # Usage Examples
//
// Promote the image of the current commit to staging:
//
//	gitops-deployer --deployment-type promote --environment stage \
//	  --team acme --service billing --docker-repo acme/billing
//
// Create a preview from a GitHub Actions workflow:
//
//	DEPLOYMENT_TYPE=preview ENVIRONMENT_NAME=dev TEAM=acme SERVICE_NAME=billing \
//	  ARGOCD_HOST=argocd.example.com ARGOCD_PASSWORD=... gitops-deployer
//
// Use the in-cluster Application API instead of the argocd binary:
//
//	gitops-deployer --deployment-type clean --controller kube --kubeconfig ~/.kube/config
//
// # Environment Variables
//
// Every flag has an environment source listed in its help text. When the
// target branch or commit is unset it is read from the git checkout at
// --git-dir.
//
//	LOG_LEVEL   Set logging verbosity (debug, info, warn, error)
//	LOG_FORMAT  Set log handler (json, text)
//
// # Output
//
// Within GitHub Actions the password is masked and app-name, preview-app,
// dashboard-url and promotion are set as step outputs. --report writes a run
// summary in json, yaml or table format ("-" for stdout). --pushgateway-url
// pushes stage durations and outcomes to a Prometheus Pushgateway.
//
// # Exit Codes
//
//	0  Success
//	1  Deployment failed (configuration, registry, controller or timeout error)
//	2  Interrupted
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/gitops-deployer/pkg/cli.version=1.0.0'"
package cli
