// Anomaly rules for the rating pipeline.
//
// Per-submission rules inspect only the client-reported signals on the rating itself. History rules (burst, uniformity) query the device's recent ratings in the ledger, which already include the rating being processed.
package rules
