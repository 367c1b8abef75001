// Package announce posts release announcements to chat webhooks.
//
// The message is a rich embed carrying the core's title, image, platform,
// version, category, description and asset download links. Every webhook
// found in the run context receives the same message.
package announce
