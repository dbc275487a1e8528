// Package assembler joins per-date cross-sections with same-date policy
// and epidemiological covariates into the ordered regression table.
//
// Covariates are read through date-keyed lookups that report a miss
// instead of failing. A miss defaults every covariate field to zero, so
// zero means both "no policy in effect" and "no data for the date".
// Rolling deaths that are undefined at the start of the epidemic series
// are written as zero for the same reason.
package assembler
