// Package stage defines the pipeline handler contract, health records, and
// stage-tagged step errors shared by the pipelines and the dispatcher.
package stage
