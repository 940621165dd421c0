// Package submitter posts the finished assessment to POST
// {base}/submit-assessment.
//
// Submit makes exactly one attempt. Unlike the patient fetch there is no
// retry layer here; a non-2xx answer comes back as *SubmissionError so the
// caller can decide what to report.
package submitter
