// Package preflight provides readiness checks for the external services and
// filesystem paths scenecast depends on.
//
// These checks run in two contexts:
//   - The CLI "scenecast status" command runs RunAll and renders each Result.
//   - The API server reports CheckDirectories on GET /api/status, which stays
//     local so status polling never spends collaborator quota.
//
// Credential checks report a missing key as a failed Result rather than an
// error so a partially configured install still gets a full report.
package preflight
