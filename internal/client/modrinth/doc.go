// Package modrinth implements the destination platform client: listing the
// versions a project already publishes and creating new ones via multipart
// upload.
package modrinth
