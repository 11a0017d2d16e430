package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "NexaLink Analytics API",
        "description": "Attendance, internal assessment and engagement analytics with role-scoped dashboards",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Attendance",
            "description": "Attendance marking and statistics"
        },
        {
            "name": "Internal Assessment",
            "description": "Assessment marks and cached totals"
        },
        {
            "name": "Analytics",
            "description": "Scoped aggregate views"
        },
        {
            "name": "Dashboard",
            "description": "Role-specific composites"
        },
        {
            "name": "Reports",
            "description": "Asynchronous CSV and PDF exports"
        },
        {
            "name": "Metrics",
            "description": "Administrative maintenance of derived metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness with queue backlog",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Resolved session scope of the caller",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/attendance/statistics": {
            "get": {
                "tags": [
                    "Attendance"
                ],
                "summary": "Attendance counts and percentages",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    },
                    {
                        "name": "start_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive lower bound (YYYY-MM-DD)",
                        "format": "date"
                    },
                    {
                        "name": "end_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive upper bound (YYYY-MM-DD)",
                        "format": "date"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/attendance/bulk-mark": {
            "post": {
                "tags": [
                    "Attendance"
                ],
                "summary": "Mark attendance for a course session",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AttendanceBulkRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/attendance/percentages": {
            "get": {
                "tags": [
                    "Attendance"
                ],
                "summary": "Cached attendance percentages",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/ia-marks/bulk": {
            "post": {
                "tags": [
                    "Internal Assessment"
                ],
                "summary": "Record marks for an assessment component",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/IABulkRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/ia-marks/totals": {
            "get": {
                "tags": [
                    "Internal Assessment"
                ],
                "summary": "Cached internal assessment totals",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/analytics/attendance": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Attendance analytics",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    },
                    {
                        "name": "start_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive lower bound (YYYY-MM-DD)",
                        "format": "date"
                    },
                    {
                        "name": "end_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive upper bound (YYYY-MM-DD)",
                        "format": "date"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/analytics/performance": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Performance analytics",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    },
                    {
                        "name": "score_type",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Score type filter",
                        "enum": ["quiz", "assignment", "exam", "project"]
                    },
                    {
                        "name": "start_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive lower bound (YYYY-MM-DD)",
                        "format": "date"
                    },
                    {
                        "name": "end_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive upper bound (YYYY-MM-DD)",
                        "format": "date"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/analytics/engagement": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Engagement analytics",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    },
                    {
                        "name": "start_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive lower bound (YYYY-MM-DD)",
                        "format": "date"
                    },
                    {
                        "name": "end_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive upper bound (YYYY-MM-DD)",
                        "format": "date"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/analytics/feedback": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Feedback analytics",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "course_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Course filter",
                        "format": "uuid"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Student filter",
                        "format": "uuid"
                    },
                    {
                        "name": "start_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive lower bound (YYYY-MM-DD)",
                        "format": "date"
                    },
                    {
                        "name": "end_date",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Inclusive upper bound (YYYY-MM-DD)",
                        "format": "date"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/dashboard": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Role-specific dashboard",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "refresh",
                        "in": "query",
                        "type": "boolean",
                        "required": false,
                        "description": "Bypass the cached dashboard"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/reports": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "List report jobs",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Reports"
                ],
                "summary": "Queue an analytics report export",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ReportRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/reports/{id}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Report job status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Job ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/reports/download/{token}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Download a finished report via signed token",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Signed token"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Report file"
                    },
                    "403": {
                        "description": "Invalid or expired token"
                    }
                }
            }
        },
        "/api/v1/metrics/courses/{id}/verify": {
            "get": {
                "tags": [
                    "Metrics"
                ],
                "summary": "Compare cached attendance percentages with a fresh computation",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Course ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/metrics/courses/{id}/recompute": {
            "post": {
                "tags": [
                    "Metrics"
                ],
                "summary": "Recompute attendance percentages and IA totals of a course",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Outside caller scope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Course ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "AttendanceBulkRequest": {
            "type": "object",
            "required": [
                "course_id",
                "date",
                "records"
            ],
            "properties": {
                "course_id": {
                    "type": "string",
                    "format": "uuid"
                },
                "date": {
                    "type": "string",
                    "format": "date"
                },
                "records": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "required": [
                            "student_id",
                            "status"
                        ],
                        "properties": {
                            "student_id": {
                                "type": "string",
                                "format": "uuid"
                            },
                            "status": {
                                "type": "string",
                                "enum": [
                                    "present",
                                    "absent",
                                    "late"
                                ]
                            },
                            "remarks": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "IABulkRequest": {
            "type": "object",
            "required": [
                "component_id",
                "records"
            ],
            "properties": {
                "component_id": {
                    "type": "string",
                    "format": "uuid"
                },
                "records": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "required": [
                            "student_id",
                            "marks"
                        ],
                        "properties": {
                            "student_id": {
                                "type": "string",
                                "format": "uuid"
                            },
                            "marks": {
                                "type": "number"
                            },
                            "remarks": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": [
                "type",
                "format"
            ],
            "properties": {
                "type": {
                    "type": "string",
                    "enum": [
                        "attendance",
                        "performance",
                        "engagement",
                        "feedback"
                    ]
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "csv",
                        "pdf"
                    ]
                },
                "course_id": {
                    "type": "string"
                },
                "student_id": {
                    "type": "string"
                },
                "faculty_id": {
                    "type": "string"
                },
                "start_date": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
