// Package process runs pipeline commands as local subprocesses.
//
// Run is the low-level primitive: it captures output and kills the whole
// process group on cancellation. ShellRunner adapts it to the pipeline's
// command runner contract.
package process
