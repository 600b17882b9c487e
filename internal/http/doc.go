// Package http exposes the tutoring timetable over a JSON API.
//
// The router exposes the following endpoints:
//   - GET /students?q=word, POST /students: list (collated by name, filtered by
//     whole-word name keywords) and create students using the `studentRequest`
//     payload defined in student_handler.go.
//   - GET, PATCH, DELETE /students/{id}: read, edit contact fields or the whole
//     session set, and delete one student.
//   - POST /students/{id}/sessions adds one session ({"day","start","end"});
//     PUT replaces the set ({"sessions":[...]}); DELETE removes the session named
//     by the day, start and end query parameters.
//   - PUT /students/{id}/payment, POST /students/{id}/subjects and
//     PUT /students/{id}/rate edit billing details.
//   - DELETE /students?confirm=true removes every student.
//   - GET /timetable, GET /free?hours=N, GET /upcoming and GET /calendar.ics
//     answer timetable queries.
//
// Overlapping sessions produce 409 Conflict with the offending pair in the
// `conflict` field; invalid sessions and fields produce 422.
package http
