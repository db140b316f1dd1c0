package nginx

// DefaultConfig is written when no configuration file exists yet. It hosts
// nothing: both servers are catch-alls that drop unmatched requests.
const DefaultConfig = `user www-data;
worker_processes auto;
pid /var/run/nginx.pid;

events {
    worker_connections 1024;
}

http {
    include       /etc/nginx/mime.types;
    default_type  application/octet-stream;
    server_names_hash_bucket_size 1024;

    include /etc/nginx/conf.d/*.conf;

    # Add Servers Here

    # Default server block for unmatched requests
    server {
        listen 80 default_server;
        listen [::]:80 default_server;
        server_name _;
        return 444;
    }

    server {
        listen 443 ssl default_server;
        listen [::]:443 ssl default_server;
        server_name _;
        ssl_reject_handshake on;
        return 444;
    }
}
`
