// Package fileserver shares a single file or a directory over HTTP so that
// phones and other machines on the LAN can fetch it. Single-file shares can
// be one-shot: the first completed download closes the share.
package fileserver
