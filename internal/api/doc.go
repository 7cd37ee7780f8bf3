// Package api provides the base HTTP client shared by the four P21
// integration APIs.
//
// Endpoint roots:
//   - OData:       {base}/odataservice/odata
//   - Entity:      {base}/api/...
//   - Transaction: {uiserver}/api/v2/...
//   - Interactive: {uiserver}/api/ui/interactive/...
//
// The uiserver base is discovered through the UI router endpoint and
// differs from the main base URL on load-balanced installs.
package api
