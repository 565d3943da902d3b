// Package attachments uploads transaction receipts before the transaction
// itself is pushed.
//
// Three backends implement Uploader: the remote API's image endpoint, an S3
// compatible bucket and an Azure blob container. Object names are derived
// from the file content, so uploading the same receipt twice after a failed
// push writes the same object again instead of leaving a duplicate.
package attachments
