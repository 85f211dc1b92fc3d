package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "eTools Document Flow API",
        "description": "Document lifecycle engine: permissions, transitions, change journal and financial rollups",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "documents", "description": "Document CRUD, nested writes and participants"},
        {"name": "transitions", "description": "Guarded status transitions"},
        {"name": "history", "description": "Append-only change journal"},
        {"name": "reservations", "description": "Fund reservation links"},
        {"name": "amendments", "description": "Shadow copy amendments"},
        {"name": "attachments", "description": "Blob uploads and code bindings"},
        {"name": "vision", "description": "ERP feed ingestion"}
    ],
    "paths": {
        "/documents/{kind}": {
            "get": {
                "tags": ["documents"],
                "summary": "List documents",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "author_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["documents"],
                "summary": "Create document",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}": {
            "get": {
                "tags": ["documents"],
                "summary": "Get document with resolved permissions",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["documents"],
                "summary": "Patch document fields",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["documents"],
                "summary": "Delete a document still in its initial status",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/documents/{kind}/bulk-close": {
            "post": {
                "tags": ["documents"],
                "summary": "Close a batch with partial success",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkCloseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}/children": {
            "post": {
                "tags": ["documents"],
                "summary": "Apply a child operation batch atomically",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChildOpsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}/participants": {
            "put": {
                "tags": ["documents"],
                "summary": "Replace participants under one role",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetParticipantsRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/documents/{kind}/{id}/transitions/{name}": {
            "post": {
                "tags": ["transitions"],
                "summary": "Execute a named transition",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Permission denied"},
                    "409": {"description": "Transition rejected"}
                }
            }
        },
        "/documents/{kind}/{id}/history": {
            "get": {
                "tags": ["history"],
                "summary": "List journal entries",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "meaningful_only", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}/history/{entryId}/revert": {
            "post": {
                "tags": ["history"],
                "summary": "Revert one journal entry (administrator only)",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "entryId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Permission denied"}
                }
            }
        },
        "/documents/{kind}/{id}/reservations": {
            "post": {
                "tags": ["reservations"],
                "summary": "Link a fund reservation",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LinkReservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Reservation claimed elsewhere"}
                }
            }
        },
        "/documents/{kind}/{id}/reservations/{frNumber}": {
            "delete": {
                "tags": ["reservations"],
                "summary": "Unlink a fund reservation",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "frNumber", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}/amendments": {
            "post": {
                "tags": ["amendments"],
                "summary": "Start an amendment",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Amendment already open"}
                }
            }
        },
        "/documents/{kind}/amendments/{amendmentId}/merge": {
            "post": {
                "tags": ["amendments"],
                "summary": "Merge an amendment back onto the original",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "amendmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/amendments/{amendmentId}": {
            "delete": {
                "tags": ["amendments"],
                "summary": "Cancel an amendment",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "amendmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/documents/{kind}/{id}/attachments": {
            "post": {
                "tags": ["attachments"],
                "summary": "Bind an attachment under a code",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BindAttachmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{kind}/{id}/attachments/{bindingId}": {
            "delete": {
                "tags": ["attachments"],
                "summary": "Remove an attachment binding",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "bindingId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/attachments": {
            "post": {
                "tags": ["attachments"],
                "summary": "Upload a file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attachments/{id}/download-token": {
            "get": {
                "tags": ["attachments"],
                "summary": "Issue a signed download token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/vision/fund-reservations": {
            "post": {
                "tags": ["vision"],
                "summary": "Ingest a fund reservation feed batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FundReservationFeedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/vision/result-structure": {
            "post": {
                "tags": ["vision"],
                "summary": "Ingest a result hierarchy feed batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResultNodeFeedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateDocumentRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object"}
            }
        },
        "UpdateDocumentRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object"}
            },
            "required": ["data"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "ChildOpsRequest": {
            "type": "object",
            "properties": {
                "ops": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ChildOp"}
                }
            },
            "required": ["ops"]
        },
        "ChildOp": {
            "type": "object",
            "properties": {
                "op": {"type": "string", "enum": ["create", "update", "delete"]},
                "id": {"type": "string"},
                "parentId": {"type": "string"},
                "kind": {"type": "string"},
                "unicefCash": {"type": "number"},
                "csoCash": {"type": "number"},
                "data": {"type": "object"}
            },
            "required": ["op"]
        },
        "SetParticipantsRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "actor_ids": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["role"]
        },
        "BulkCloseRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["ids"]
        },
        "LinkReservationRequest": {
            "type": "object",
            "properties": {
                "fr_number": {"type": "string"}
            },
            "required": ["fr_number"]
        },
        "BindAttachmentRequest": {
            "type": "object",
            "properties": {
                "attachment_id": {"type": "string"},
                "code": {"type": "string"}
            },
            "required": ["attachment_id", "code"]
        },
        "FundReservationFeedRequest": {
            "type": "object",
            "properties": {
                "records": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/FundReservationFeedItem"}
                }
            },
            "required": ["records"]
        },
        "FundReservationFeedItem": {
            "type": "object",
            "properties": {
                "fr_number": {"type": "string"},
                "vendor_code": {"type": "string"},
                "currency": {"type": "string"},
                "total_amt_local": {"type": "number"},
                "total_amt": {"type": "number"},
                "actual_amt_local": {"type": "number"},
                "actual_amt": {"type": "number"},
                "outstanding_amt_local": {"type": "number"},
                "outstanding_amt": {"type": "number"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["fr_number", "currency"]
        },
        "ResultNodeFeedRequest": {
            "type": "object",
            "properties": {
                "nodes": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ResultNodeFeedItem"}
                }
            },
            "required": ["nodes"]
        },
        "ResultNodeFeedItem": {
            "type": "object",
            "properties": {
                "wbs": {"type": "string"},
                "name": {"type": "string"},
                "result_type": {"type": "string"}
            },
            "required": ["wbs", "name", "result_type"]
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
