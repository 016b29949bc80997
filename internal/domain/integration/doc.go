// Package integration contains the remote catalog bounded context.
// It defines the port the import pipeline uses to drive the external
// commerce platform's Admin API, plus the value types exchanged with it.
//
// Key concepts:
//   - RemoteCatalog: port for product, metafield, inventory, shipping and image calls
//   - RemoteProduct: the platform's view of a product after a write
//   - RemoteRequestError: a non-success response, carrying status code and body
//
// Adapters live in infrastructure/ecommerce.
package integration
