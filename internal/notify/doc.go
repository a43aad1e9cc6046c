// Package notify composes and sends notifications about matching events.
//
// Compose turns a list of matches into a subject and plain text and HTML
// bodies. Notifier ties the pieces together: it scans the records file,
// composes a message when anything matches, and hands it to a Transport.
// MailgunTransport is the Transport used in production.
package notify
