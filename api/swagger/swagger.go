package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Pengajuan SA API",
        "description": "Workflow engine for study-leave (Semester Antara) submissions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and logout"},
        {"name": "PengajuanSA", "description": "SA submission workflow"},
        {"name": "Dosen", "description": "Instructor directory"},
        {"name": "Notifikasi", "description": "Workflow notifications"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/pengajuan-sa": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "List submissions shaped for the caller's role",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["PengajuanSA"],
                "summary": "Submit a new SA request with payment proof",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "paymentAmount", "in": "formData", "type": "number", "required": true},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "courses", "in": "formData", "type": "string", "required": true, "description": "JSON array of {courseName, creditWeight}"},
                    {"name": "buktiBayar", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/pengajuan-sa/{id}": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "Get one submission shaped for the caller's role",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/mahasiswa/{id}/pengajuan-sa": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "List one student's submissions",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dosen/{id}/pengajuan-sa": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "List detail rows assigned to one instructor",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pengajuan-sa/{id}/verifikasi": {
            "put": {
                "tags": ["PengajuanSA"],
                "summary": "Verify payment of a SUBMITTED request",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/pengajuan-sa/{id}/tolak": {
            "put": {
                "tags": ["PengajuanSA"],
                "summary": "Reject a request with a mandatory reason",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/pengajuan-sa/{id}/detail/{detailId}/assign-dosen": {
            "put": {
                "tags": ["PengajuanSA"],
                "summary": "Assign an instructor to one course detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "detailId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignInstructorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/pengajuan-sa/{id}/detail/{detailId}/nilai": {
            "put": {
                "tags": ["PengajuanSA"],
                "summary": "Record the final score of one course detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "detailId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Assigned to another instructor"},
                    "409": {"description": "Already scored"}
                }
            }
        },
        "/pengajuan-sa/{id}/bukti-bayar": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "Get a signed download link for the payment proof",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pengajuan-sa/{id}/bukti-bayar/download": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "Download the payment proof via signed token",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/pengajuan-sa/{id}/rekap.pdf": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "Download the per-request recap PDF",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF stream"}
                }
            }
        },
        "/export/pengajuan-sa.csv": {
            "get": {
                "tags": ["PengajuanSA"],
                "summary": "Export detail rows as CSV",
                "responses": {
                    "200": {"description": "CSV stream"}
                }
            }
        },
        "/dosen": {
            "get": {
                "tags": ["Dosen"],
                "summary": "List instructors",
                "parameters": [
                    {"name": "program", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifikasi": {
            "get": {
                "tags": ["Notifikasi"],
                "summary": "List workflow notifications for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifikasi/{id}/read": {
            "put": {
                "tags": ["Notifikasi"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Marked"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RejectSubmissionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "AssignInstructorRequest": {
            "type": "object",
            "properties": {
                "instructorId": {"type": "string"}
            }
        },
        "RecordScoreRequest": {
            "type": "object",
            "properties": {
                "score": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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
