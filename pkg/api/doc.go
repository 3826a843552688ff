// Package api serves the storage API the component's save collaborator talks
// to: resumes by id, the template selection of a resume and the template
// catalog. Routes are mounted on a gorilla/mux router and request bodies are
// validated against an embedded OpenAPI contract.
package api
