// Package alarm contains core domain types for the alarm scheduling engine.
//
// It defines Alarm (a persisted request to deliver one notification at a
// specific instant), the derived Status values, and the sentinel errors
// shared by the repository, service and transport layers.
package alarm
