// Package cattype defines the archive data model shared by the codec, the
// content store and the public API: entries, the header, compression, the
// error taxonomy and progress events.
package cattype
