/*
Package observability provides tools for monitoring the a11ybridge engine.

Both Metrics and Recorder expose their behaviour as domain.SyncHooks, so they
plug into a Bridge with WithHooks and can be combined with Merge.
*/
package observability
