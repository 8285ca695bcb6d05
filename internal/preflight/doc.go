// Package preflight provides readiness checks for the paths and the tagging
// service a winnow run depends on.
//
// These checks run in two contexts:
//   - The sorter calls Gate before a processing run. A failed gate aborts
//     the run before any image is touched.
//   - The CLI "winnow check" command uses RunAll to display every check,
//     including advisory ones a run can survive.
package preflight
